package storage

import (
	"errors"
	"fmt"

	"github.com/JordanCoin/openfoia/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTypeMismatch indicates an entity merge was attempted between
	// entities of different types.
	ErrTypeMismatch = errors.New("entity types do not match")
)

// CommitError wraps any failure inside a document commit transaction. The
// transaction is rolled back before the error is returned, so a commit
// that fails leaves no partial state.
type CommitError struct {
	DocumentID string
	Err        error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("storage: commit of document %s failed: %v", e.DocumentID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// EntityAlias is one alias to append to an entity during a commit.
type EntityAlias struct {
	EntityID string
	Alias    string
}

// MentionRecord attaches one merged mention to its resolved entity.
type MentionRecord struct {
	EntityID string
	Mention  types.MergedMention
}

// EvidenceSpan is one piece of backing evidence for an edge, carrying the
// confidence its source contributed. Edge confidence is recomputed from
// the full evidence set on every commit.
type EvidenceSpan struct {
	Span       types.Span
	Confidence float64
}

// EdgeUpsert creates or strengthens one relationship edge. For undirected
// edges SourceID and TargetID must already be in canonical (sorted) order.
type EdgeUpsert struct {
	SourceID string
	TargetID string
	Type     string
	Directed bool
	Evidence []EvidenceSpan
}

// DocumentCommit is everything one document contributes to the graph,
// applied in a single transaction. Either all of it lands or none of it.
type DocumentCommit struct {
	Document    *types.Document
	NewEntities []*types.Entity
	NewAliases  []EntityAlias
	Mentions    []MentionRecord
	Edges       []EdgeUpsert

	// ExtractorGaps lists extractors that were unavailable for this
	// document; recorded with the committed status for later re-ingest.
	ExtractorGaps []string

	// Summary is the per-document extraction digest, stored with the
	// committed status.
	Summary string
}

// EntityFilter narrows an entity listing.
type EntityFilter struct {
	// Type restricts results to one entity type. Empty matches all types.
	Type string

	// NameContains is a case-insensitive substring match against the
	// canonical name. Empty matches all names.
	NameContains string

	// Limit caps the number of results. Zero means no cap.
	Limit int

	// Offset skips the first N results, for pagination.
	Offset int
}

// Neighborhood is the subgraph reachable from a root entity within a hop
// limit: the entities and every edge among them.
type Neighborhood struct {
	Root     *types.Entity
	Entities []*types.Entity
	Edges    []*types.Edge
}

// EvidenceRecord is one mention backing an entity, with surrounding
// document text for review.
type EvidenceRecord struct {
	Span    types.Span `json:"span"`
	Text    string     `json:"text"`
	Excerpt string     `json:"excerpt,omitempty"`
}
