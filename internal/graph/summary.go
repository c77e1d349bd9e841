package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// summaryMaxPerType bounds how many entities a type section lists; the
// remainder is reported as a count.
const summaryMaxPerType = 10

// summaryMaxRelations bounds the relationship section.
const summaryMaxRelations = 20

// buildSummary renders a human-readable digest of one document's merged
// mentions, grouped by entity type with the strongest mentions first.
// The digest is a pure function of the document's extraction output, so
// re-ingesting an unchanged document stores the same text. It is kept
// with the committed status and returned from ingestion, so an operator
// sees what a document contributed without querying the graph.
func buildSummary(mentions []types.MergedMention, signals []types.RelationSignal) string {
	if len(mentions) == 0 && len(signals) == 0 {
		return ""
	}

	byType := make(map[string][]types.MergedMention)
	for _, m := range mentions {
		byType[m.Type] = append(byType[m.Type], m)
	}
	entityTypes := make([]string, 0, len(byType))
	for t := range byType {
		entityTypes = append(entityTypes, t)
	}
	sort.Strings(entityTypes)

	var b strings.Builder
	b.WriteString("## Entity Extraction Summary\n")

	for _, t := range entityTypes {
		group := byType[t]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Confidence > group[j].Confidence
		})
		fmt.Fprintf(&b, "\n### %s (%d)\n", t, len(group))
		for i, m := range group {
			if i == summaryMaxPerType {
				fmt.Fprintf(&b, "  ... and %d more\n", len(group)-summaryMaxPerType)
				break
			}
			fmt.Fprintf(&b, "- %s [%.0f%%]\n", m.Text, m.Confidence*100)
		}
	}

	if len(signals) > 0 {
		fmt.Fprintf(&b, "\n### Relationships (%d)\n", len(signals))
		for i, r := range signals {
			if i == summaryMaxRelations {
				break
			}
			fmt.Fprintf(&b, "- %s -> %s -> %s\n", r.FromText, r.Type, r.ToText)
		}
	}

	return b.String()
}
