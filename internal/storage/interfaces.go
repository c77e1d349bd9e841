// Package storage defines the persistence interface for the entity graph
// and the shared types its backends exchange with the pipeline.
//
// Two backends implement GraphStore: SQLite for single-node deployments
// and PostgreSQL for shared ones. Both give CommitDocument full
// transactional atomicity, which is what the pipeline's idempotence
// guarantees rest on.
package storage

import (
	"context"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// GraphStore persists the entity graph: entities, their mentions and
// aliases, relationship edges, and per-document processing status.
type GraphStore interface {
	// CommitDocument applies everything one document contributes to the
	// graph in a single transaction: the document record, new entities,
	// aliases, mentions, and edge upserts, plus the committed status.
	// Duplicate mentions and evidence (same document and span) are
	// ignored, which makes re-committing a document a no-op. Any failure
	// rolls the transaction back and returns a *CommitError.
	CommitDocument(ctx context.Context, commit *DocumentCommit) error

	// Entity retrieves one entity with its aliases and mention count.
	// Returns ErrNotFound if it doesn't exist.
	Entity(ctx context.Context, id string) (*types.Entity, error)

	// Entities lists entities matching the filter, ordered by mention
	// count descending then name.
	Entities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error)

	// Neighborhood returns the subgraph within maxHops of the root
	// entity. Returns ErrNotFound if the root doesn't exist.
	Neighborhood(ctx context.Context, entityID string, maxHops int) (*Neighborhood, error)

	// Edge retrieves one edge with its evidence spans.
	// Returns ErrNotFound if it doesn't exist.
	Edge(ctx context.Context, id string) (*types.Edge, error)

	// EntityEvidence returns every mention backing an entity, with
	// surrounding document text. Returns ErrNotFound for an unknown
	// entity.
	EntityEvidence(ctx context.Context, entityID string) ([]EvidenceRecord, error)

	// EdgeEvidence returns the evidence spans backing an edge, with
	// surrounding document text. Returns ErrNotFound for an unknown edge.
	EdgeEvidence(ctx context.Context, edgeID string) ([]EvidenceRecord, error)

	// MentionSpans returns the spans of every mention already persisted
	// for a document. The resolver uses them to skip mentions a previous
	// ingest of the same document already attached.
	MentionSpans(ctx context.Context, documentID string) ([]types.Span, error)

	// LoadEntities returns the full entity set, used to seed the
	// resolver's index at startup.
	LoadEntities(ctx context.Context) ([]*types.Entity, error)

	// MergeEntities absorbs one entity into another: mentions, aliases,
	// and edges are re-pointed to the survivor, colliding edges have
	// their evidence combined, and an audit record is written. The two
	// entities must share a type; ErrTypeMismatch otherwise. The merge
	// is irreversible.
	MergeEntities(ctx context.Context, survivingID, absorbedID, actor string) (*types.MergeRecord, error)

	// DocumentStatus returns the processing status of one document.
	// Returns ErrNotFound if the document was never seen.
	DocumentStatus(ctx context.Context, documentID string) (*types.DocumentStatus, error)

	// SetDocumentStatus records a document's processing state. Used by
	// the pipeline at each stage transition; CommitDocument sets the
	// committed status itself.
	SetDocumentStatus(ctx context.Context, status types.DocumentStatus) error

	// Statuses lists the processing status of every known document.
	Statuses(ctx context.Context) ([]*types.DocumentStatus, error)

	// Close releases the underlying database handle.
	Close() error
}
