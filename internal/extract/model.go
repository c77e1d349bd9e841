package extract

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// ModelExtractor is the probabilistic extractor: it delegates to a
// pluggable Provider and converts the provider's candidates into
// mentions with verified spans. Provider failures and timeouts are
// reported as ErrExtractorUnavailable and never abort the document.
type ModelExtractor struct {
	provider Provider
	allowed  map[string]bool
	name     string
}

// NewModelExtractor creates a model extractor that accepts the built-in
// entity types plus the given custom type names.
func NewModelExtractor(provider Provider, customTypes []string) *ModelExtractor {
	allowed := make(map[string]bool, len(types.BuiltinEntityTypes)+len(customTypes))
	for _, t := range types.BuiltinEntityTypes {
		allowed[t] = true
	}
	for _, t := range customTypes {
		allowed[t] = true
	}
	return &ModelExtractor{
		provider: provider,
		allowed:  allowed,
		name:     "model:" + provider.Model(),
	}
}

// Name implements Extractor.
func (m *ModelExtractor) Name() string { return m.name }

// Extract asks the provider for candidates and relation signals,
// splitting long documents into paragraph-aligned chunks so each call
// stays within the model's context. Every candidate span is re-anchored
// against the full document text: a span the model got wrong is replaced
// by the first occurrence of the literal, and candidates whose literal
// does not appear in the document are dropped.
func (m *ModelExtractor) Extract(ctx context.Context, doc *types.Document) (*Result, error) {
	var candidates []Candidate
	var relations []Relation
	for _, chunk := range chunkText(doc.Text, maxChunkChars) {
		providerResult, err := m.provider.Extract(ctx, chunk.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrExtractorUnavailable, m.name, err)
		}
		for _, c := range providerResult.Candidates {
			// Claimed offsets are chunk-relative; shift them into the
			// document's offset space before anchoring.
			if c.Start >= 0 && c.End > c.Start {
				c.Start += chunk.start
				c.End += chunk.start
			}
			candidates = append(candidates, c)
		}
		relations = append(relations, providerResult.Relations...)
	}

	result := &Result{}
	for _, c := range candidates {
		if !m.allowed[c.Type] {
			log.Printf("extract: %s: skipping candidate %q with unknown type %q", m.name, c.Text, c.Type)
			continue
		}
		span, ok := m.anchor(doc, c.Text, c.Start, c.End)
		if !ok {
			log.Printf("extract: %s: candidate %q not found in document %s", m.name, c.Text, doc.ID)
			continue
		}
		result.Mentions = append(result.Mentions, types.Mention{
			Type:       c.Type,
			Text:       doc.Text[span.Start:span.End],
			Span:       span,
			Confidence: c.Confidence,
			Extractor:  m.name,
		})
	}

	for _, r := range relations {
		// Evidence anchors to the quoted evidence text when it appears in
		// the document, falling back to the From literal's occurrence.
		span, ok := m.anchor(doc, r.Evidence, -1, -1)
		if !ok {
			span, ok = m.anchor(doc, r.From, -1, -1)
		}
		if !ok {
			continue
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = 0.5
		}
		result.Relations = append(result.Relations, types.RelationSignal{
			FromText:   r.From,
			ToText:     r.To,
			Type:       r.Type,
			Span:       span,
			Confidence: confidence,
			Extractor:  m.name,
		})
	}

	return result, nil
}

// anchor verifies a claimed span against the document text, falling back
// to the first occurrence of the literal.
func (m *ModelExtractor) anchor(doc *types.Document, text string, start, end int) (types.Span, bool) {
	if text == "" {
		return types.Span{}, false
	}
	if start >= 0 && end <= len(doc.Text) && end-start == len(text) && doc.Text[start:end] == text {
		return types.Span{DocumentID: doc.ID, Start: start, End: end}, true
	}
	idx := strings.Index(doc.Text, text)
	if idx == -1 {
		return types.Span{}, false
	}
	return types.Span{DocumentID: doc.ID, Start: idx, End: idx + len(text)}, true
}

var _ Extractor = (*ModelExtractor)(nil)
