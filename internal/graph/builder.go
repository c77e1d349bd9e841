// Package graph turns one document's resolved mentions into relationship
// edges and runs the ingestion engine that feeds them to the store.
package graph

import (
	"log"
	"sort"

	"github.com/JordanCoin/openfoia/internal/resolve"
	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/pkg/types"
)

const (
	// coOccurConfidence is the evidence weight one co-occurrence
	// contributes. Deliberately weak: a single sighting of two names near
	// each other proves little, repeated sightings compound.
	coOccurConfidence = 0.5

	// directedFloor is the minimum evidence weight for an
	// extractor-asserted relation, which carries more signal than bare
	// proximity.
	directedFloor = 0.7
)

// Builder derives edge upserts from a document's resolved mentions and
// relation signals.
type Builder struct {
	window   int
	resolver *resolve.Resolver
}

// NewBuilder creates a builder. window is the maximum character gap
// between two mentions for them to count as co-occurring.
func NewBuilder(window int, resolver *resolve.Resolver) *Builder {
	return &Builder{window: window, resolver: resolver}
}

type edgeKey struct {
	source string
	target string
	relTyp string
}

// Build returns the edge upserts one document contributes: an undirected
// co_occurs edge for every pair of distinct entities mentioned within
// the window, and a directed edge for every relation signal whose
// endpoints resolve. Evidence for repeated pairs accumulates on one
// upsert.
func (b *Builder) Build(mentions []resolve.ResolvedMention, signals []types.RelationSignal) []storage.EdgeUpsert {
	acc := make(map[edgeKey]*storage.EdgeUpsert)
	var order []edgeKey

	add := func(key edgeKey, directed bool, ev storage.EvidenceSpan) {
		up, ok := acc[key]
		if !ok {
			up = &storage.EdgeUpsert{
				SourceID: key.source,
				TargetID: key.target,
				Type:     key.relTyp,
				Directed: directed,
			}
			acc[key] = up
			order = append(order, key)
		}
		up.Evidence = append(up.Evidence, ev)
	}

	sorted := make([]resolve.ResolvedMention, len(mentions))
	copy(sorted, mentions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Mention.Span.Start < sorted[j].Mention.Span.Start
	})

	for i := 0; i < len(sorted); i++ {
		a := sorted[i]
		for j := i + 1; j < len(sorted); j++ {
			c := sorted[j]
			if c.Mention.Span.Start-a.Mention.Span.End > b.window {
				break
			}
			if a.EntityID == c.EntityID {
				continue
			}
			src, tgt := a.EntityID, c.EntityID
			if src > tgt {
				src, tgt = tgt, src
			}
			add(edgeKey{src, tgt, types.RelCoOccurs}, false, storage.EvidenceSpan{
				Span: types.Span{
					DocumentID: a.Mention.Span.DocumentID,
					Start:      a.Mention.Span.Start,
					End:        c.Mention.Span.End,
				},
				Confidence: coOccurConfidence,
			})
		}
	}

	// Literals of this document resolve locally first, so a signal naming
	// an entity created by this same document binds to it.
	local := make(map[string]string, len(mentions))
	for _, m := range mentions {
		if n := resolve.NormalizeName(m.Mention.Text); n != "" {
			if _, ok := local[n]; !ok {
				local[n] = m.EntityID
			}
		}
	}
	bind := func(literal string) (string, bool) {
		if id, ok := local[resolve.NormalizeName(literal)]; ok {
			return id, true
		}
		return b.resolver.MatchAnyType(literal)
	}

	for _, sig := range signals {
		from, ok := bind(sig.FromText)
		if !ok {
			log.Printf("graph: dropping %s signal, %q does not resolve", sig.Type, sig.FromText)
			continue
		}
		to, ok := bind(sig.ToText)
		if !ok {
			log.Printf("graph: dropping %s signal, %q does not resolve", sig.Type, sig.ToText)
			continue
		}
		if from == to {
			continue
		}
		confidence := sig.Confidence
		if confidence < directedFloor {
			confidence = directedFloor
		}
		add(edgeKey{from, to, sig.Type}, true, storage.EvidenceSpan{
			Span:       sig.Span,
			Confidence: confidence,
		})
	}

	out := make([]storage.EdgeUpsert, 0, len(order))
	for _, key := range order {
		out = append(out, *acc[key])
	}
	return out
}
