package types

// Mention is a single candidate occurrence of an entity in one document,
// produced by an extractor. Mentions are immutable; once emitted they are
// owned by the mention merger.
type Mention struct {
	// Type is the entity type (built-in or configured custom type).
	Type string `json:"type"`

	// Text is the literal text as it appears in the document.
	Text string `json:"text"`

	// Span is the source location of the mention.
	Span Span `json:"span"`

	// Confidence is the extractor's certainty, in [0,1].
	Confidence float64 `json:"confidence"`

	// Extractor identifies which extractor produced the mention.
	Extractor string `json:"extractor"`
}

// MergedMention is the consensus of all raw mentions in one document whose
// spans overlap and whose types agree. It exists only within the
// processing of a single document; the resolver consumes it and the store
// persists it as a mention record attached to a resolved entity.
type MergedMention struct {
	// Type is the agreed entity type of the cluster.
	Type string `json:"type"`

	// Text is the consensus literal: the text of the contributing mention
	// from the most confident extractor, ties broken by longer span.
	Text string `json:"text"`

	// Span covers the union of the contributing spans.
	Span Span `json:"span"`

	// Confidence is the maximum of the contributing confidences. A strong
	// signal from one extractor is never diluted by a weaker one.
	Confidence float64 `json:"confidence"`

	// Sources are the raw mentions that formed the cluster.
	Sources []Mention `json:"sources"`
}

// RelationSignal is a typed relation asserted by an extractor between two
// literal texts in the same document. The relationship builder resolves
// both ends against the entity graph before creating a directed edge.
type RelationSignal struct {
	FromText   string  `json:"from_text"`
	ToText     string  `json:"to_text"`
	Type       string  `json:"type"`
	Span       Span    `json:"span"`
	Confidence float64 `json:"confidence"`
	Extractor  string  `json:"extractor"`
}
