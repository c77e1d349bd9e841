// Package extract implements the entity extractor set: a fixed capability
// interface with a registered list of implementations, so new extractors
// plug in without touching the merger or resolver. Two concrete
// strategies ship by default: a deterministic pattern extractor that is
// always available, and a model-backed extractor that delegates to an
// external provider and may fail per document without aborting anything.
package extract

import (
	"context"
	"errors"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// ErrExtractorUnavailable indicates a probabilistic extractor failed or
// timed out for one document. The failure is non-fatal: the document
// proceeds with the remaining extractors' mentions and the gap is
// recorded for observability.
var ErrExtractorUnavailable = errors.New("extractor unavailable")

// Result is one extractor's output for one document: candidate entity
// mentions, plus any typed relation signals the extractor asserts.
// Deterministic extractors leave Relations empty.
type Result struct {
	Mentions  []types.Mention
	Relations []types.RelationSignal
}

// Extractor is the capability every extractor implements: given a
// normalized document, produce candidate mentions. Extractors run
// independently per document; no extractor's output depends on another's.
type Extractor interface {
	// Name identifies the extractor in mention provenance and gap records.
	Name() string

	// Extract produces candidate mentions for the document. A returned
	// error wrapping ErrExtractorUnavailable marks a recoverable gap.
	Extract(ctx context.Context, doc *types.Document) (*Result, error)
}

// Registry holds the ordered list of registered extractors.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Register appends an extractor to the set.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Extractors returns the registered extractors in registration order.
func (r *Registry) Extractors() []Extractor {
	return r.extractors
}
