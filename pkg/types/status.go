package types

// DocStatus tracks how far a document has progressed through the
// extraction pipeline. The status is persisted so that processing
// progress is queryable and so that completed documents are never
// re-extracted after a restart.
type DocStatus string

const (
	// DocPending indicates the document is queued, not yet normalized.
	DocPending DocStatus = "pending"

	// DocNormalized indicates the canonical text stream was built.
	DocNormalized DocStatus = "normalized"

	// DocExtracted indicates all available extractors have run and raw
	// mentions were merged.
	DocExtracted DocStatus = "extracted"

	// DocResolved indicates mentions were matched against the entity graph.
	DocResolved DocStatus = "resolved"

	// DocCommitted indicates the document's mentions and edges are durably
	// part of the graph.
	DocCommitted DocStatus = "committed"

	// DocFailed indicates processing stopped; the reason is recorded
	// alongside the status and the document may be re-queued.
	DocFailed DocStatus = "failed"
)

// DocumentStatus is the queryable processing state of one document.
type DocumentStatus struct {
	DocumentID string    `json:"document_id"`
	Status     DocStatus `json:"status"`
	Reason     string    `json:"reason,omitempty"`

	// Summary is a human-readable digest of what the document contributed
	// to the graph, grouped by entity type. Set when the document commits.
	Summary string `json:"summary,omitempty"`

	// ExtractorGaps lists extractors that were unavailable when the
	// document was committed. A later re-ingest with the extractor back
	// fills the gap without duplicating existing mentions.
	ExtractorGaps []string `json:"extractor_gaps,omitempty"`
}
