package types

import "time"

// ConfidenceLevel buckets a numeric edge confidence for presentation.
type ConfidenceLevel string

const (
	ConfidenceConfirmed  ConfidenceLevel = "confirmed"  // Direct, repeated evidence
	ConfidenceProbable   ConfidenceLevel = "probable"   // Strong circumstantial
	ConfidencePossible   ConfidenceLevel = "possible"   // Weak link
	ConfidenceUnresolved ConfidenceLevel = "unresolved" // Below the flagging threshold
)

// LevelFor maps a numeric confidence in [0,1] to a presentation bucket.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.9:
		return ConfidenceConfirmed
	case confidence >= 0.7:
		return ConfidenceProbable
	case confidence >= 0.4:
		return ConfidencePossible
	default:
		return ConfidenceUnresolved
	}
}

// Edge is a typed relationship between two resolved entities, backed by an
// evidence list of spans. Co-occurrence edges are undirected (SourceID and
// TargetID are stored in canonical order); extractor-asserted relations
// are directed. Edges are never deleted: low-confidence edges are flagged
// and retained, and new evidence can only strengthen an edge.
type Edge struct {
	ID         string    `json:"id"` // Unique identifier (format: rel:uuid)
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Type       string    `json:"type"`
	Directed   bool      `json:"directed"`
	Confidence float64   `json:"confidence"`

	// Level is the presentation bucket for Confidence, derived via
	// LevelFor when the edge is read back.
	Level ConfidenceLevel `json:"level"`

	Flagged   bool      `json:"flagged"` // Below the low-confidence threshold
	Evidence  []Span    `json:"evidence,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
