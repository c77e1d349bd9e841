// Package merge collapses the raw mentions all extractors produced for
// one document into a consensus mention list. Mentions whose spans
// overlap enough and whose types agree become one MergedMention;
// overlapping mentions of different types are deliberately kept distinct
// so the resolver and relationship builder can reconcile the ambiguity
// with evidence instead of losing it here.
package merge

import (
	"sort"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// Merger clusters one document's raw mentions.
type Merger struct {
	overlapFraction float64
}

// NewMerger creates a merger. overlapFraction is the fraction of the
// shorter span that must overlap for two same-type mentions to merge.
func NewMerger(overlapFraction float64) *Merger {
	return &Merger{overlapFraction: overlapFraction}
}

// Merge clusters the given mentions (all from one document) and returns
// the merged list sorted by span start. Consensus literal text comes from
// the contributing mention with the highest individual confidence, ties
// broken by longer span; merged confidence is the maximum of the
// contributors, never averaged down.
func (m *Merger) Merge(mentions []types.Mention) []types.MergedMention {
	byType := make(map[string][]types.Mention)
	for _, mn := range mentions {
		byType[mn.Type] = append(byType[mn.Type], mn)
	}

	var merged []types.MergedMention
	for _, group := range byType {
		merged = append(merged, m.mergeType(group)...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Span.Start != merged[j].Span.Start {
			return merged[i].Span.Start < merged[j].Span.Start
		}
		return merged[i].Span.End < merged[j].Span.End
	})
	return merged
}

// mergeType clusters the mentions of a single type by span overlap.
func (m *Merger) mergeType(mentions []types.Mention) []types.MergedMention {
	sort.SliceStable(mentions, func(i, j int) bool {
		if mentions[i].Span.Start != mentions[j].Span.Start {
			return mentions[i].Span.Start < mentions[j].Span.Start
		}
		return mentions[i].Span.End < mentions[j].Span.End
	})

	var out []types.MergedMention
	var cluster []types.Mention
	var covering types.Span

	flush := func() {
		if len(cluster) == 0 {
			return
		}
		out = append(out, m.consensus(cluster, covering))
		cluster = nil
	}

	for _, mn := range mentions {
		if len(cluster) == 0 {
			cluster = []types.Mention{mn}
			covering = mn.Span
			continue
		}
		if m.overlaps(covering, mn.Span) {
			cluster = append(cluster, mn)
			if mn.Span.End > covering.End {
				covering.End = mn.Span.End
			}
			continue
		}
		flush()
		cluster = []types.Mention{mn}
		covering = mn.Span
	}
	flush()
	return out
}

// overlaps reports whether b overlaps a by more than the configured
// fraction of the shorter span.
func (m *Merger) overlaps(a, b types.Span) bool {
	overlap := a.Overlap(b)
	if overlap == 0 {
		return false
	}
	shorter := a.Length()
	if b.Length() < shorter {
		shorter = b.Length()
	}
	return float64(overlap) > m.overlapFraction*float64(shorter)
}

// consensus builds the merged mention for one cluster.
func (m *Merger) consensus(cluster []types.Mention, covering types.Span) types.MergedMention {
	best := cluster[0]
	maxConfidence := cluster[0].Confidence
	for _, mn := range cluster[1:] {
		if mn.Confidence > maxConfidence {
			maxConfidence = mn.Confidence
		}
		if mn.Confidence > best.Confidence ||
			(mn.Confidence == best.Confidence && mn.Span.Length() > best.Span.Length()) {
			best = mn
		}
	}

	sources := make([]types.Mention, len(cluster))
	copy(sources, cluster)

	return types.MergedMention{
		Type:       best.Type,
		Text:       best.Text,
		Span:       covering,
		Confidence: maxConfidence,
		Sources:    sources,
	}
}
