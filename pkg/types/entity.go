package types

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the canonical, cross-document identity a set of mentions
// resolve to. Entities are append-only: aliases and mentions accumulate,
// and the only destructive operation is an explicit, audited merge into
// another entity.
type Entity struct {
	ID        string    `json:"id"`   // Unique identifier (format: ent:uuid)
	Type      string    `json:"type"` // Entity type (built-in or custom)
	Name      string    `json:"name"` // Canonical display name
	Aliases   []string  `json:"aliases,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// MentionCount is the number of mention records attached across all
	// documents. Populated on read; not authoritative for writes.
	MentionCount int `json:"mention_count,omitempty"`
}

// HasAlias reports whether the entity already knows the given literal,
// either as its canonical name or as an alias.
func (e *Entity) HasAlias(literal string) bool {
	if e.Name == literal {
		return true
	}
	for _, a := range e.Aliases {
		if a == literal {
			return true
		}
	}
	return false
}

// MergeRecord is the audit trail of an explicit entity merge. Merges are
// irreversible; the record is the only remaining reference to the
// absorbed entity's identity.
type MergeRecord struct {
	ID           string    `json:"id"` // Unique identifier (format: merge:uuid)
	SurvivingID  string    `json:"surviving_id"`
	AbsorbedID   string    `json:"absorbed_id"`
	AbsorbedName string    `json:"absorbed_name"`
	Actor        string    `json:"actor"`
	MergedAt     time.Time `json:"merged_at"`
}

// NewEntityID generates a unique entity id.
func NewEntityID() string {
	return "ent:" + uuid.NewString()
}

// NewEdgeID generates a unique relationship edge id.
func NewEdgeID() string {
	return "rel:" + uuid.NewString()
}

// NewMergeID generates a unique merge record id.
func NewMergeID() string {
	return "merge:" + uuid.NewString()
}
