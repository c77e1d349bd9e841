package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JordanCoin/openfoia/pkg/types"
)

func mention(extractor, entityType, text string, start, end int, confidence float64) types.Mention {
	return types.Mention{
		Type:       entityType,
		Text:       text,
		Span:       types.Span{DocumentID: "doc-1", Start: start, End: end},
		Confidence: confidence,
		Extractor:  extractor,
	}
}

func TestMergeOverlappingSameType(t *testing.T) {
	m := NewMerger(0.5)

	merged := m.Merge([]types.Mention{
		mention("pattern", "PERSON", "John Smith", 10, 20, 0.5),
		mention("model:fake", "PERSON", "John Smith", 10, 20, 0.9),
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "John Smith", merged[0].Text)
	assert.Equal(t, 0.9, merged[0].Confidence, "merged confidence is the max, never averaged down")
	assert.Len(t, merged[0].Sources, 2)
	assert.Equal(t, 10, merged[0].Span.Start)
	assert.Equal(t, 20, merged[0].Span.End)
}

func TestMergeConsensusPrefersHigherConfidenceThenLongerSpan(t *testing.T) {
	m := NewMerger(0.5)

	// Higher confidence wins even with a shorter span.
	merged := m.Merge([]types.Mention{
		mention("pattern", "PERSON", "Dr. Jane Doe", 0, 12, 0.85),
		mention("pattern", "PERSON", "Jane Doe", 4, 12, 0.5),
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "Dr. Jane Doe", merged[0].Text)

	// On a confidence tie, the longer span wins.
	merged = m.Merge([]types.Mention{
		mention("a", "ORG", "Bureau", 0, 6, 0.8),
		mention("b", "ORG", "Bureau of Records", 0, 17, 0.8),
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "Bureau of Records", merged[0].Text)
}

func TestMergeDisjointSpansStaySeparate(t *testing.T) {
	m := NewMerger(0.5)

	merged := m.Merge([]types.Mention{
		mention("pattern", "PERSON", "John Smith", 0, 10, 0.5),
		mention("pattern", "PERSON", "Jane Doe", 30, 38, 0.5),
	})
	assert.Len(t, merged, 2)
}

func TestMergeInsufficientOverlapStaysSeparate(t *testing.T) {
	m := NewMerger(0.5)

	// Overlap of 2 chars against a shorter span of 10: 0.2 <= 0.5.
	merged := m.Merge([]types.Mention{
		mention("a", "ORG", "Department", 0, 10, 0.6),
		mention("b", "ORG", "Department of State", 8, 18, 0.6),
	})
	assert.Len(t, merged, 2)
}

func TestMergeDifferentTypesPreserved(t *testing.T) {
	m := NewMerger(0.5)

	// The same span claimed as DOCUMENT_ID and CASE_NUMBER stays two
	// merged mentions; ambiguity is resolved downstream, not discarded.
	merged := m.Merge([]types.Mention{
		mention("pattern", "DOCUMENT_ID", "23-cv-00456", 24, 35, 0.9),
		mention("pattern", "CASE_NUMBER", "23-cv-00456", 24, 35, 1.0),
	})
	require.Len(t, merged, 2)
	seen := map[string]bool{}
	for _, mm := range merged {
		seen[mm.Type] = true
	}
	assert.True(t, seen["DOCUMENT_ID"] && seen["CASE_NUMBER"])
}

func TestMergeChainedOverlap(t *testing.T) {
	m := NewMerger(0.5)

	// a overlaps b, b overlaps c: one cluster with the covering span.
	merged := m.Merge([]types.Mention{
		mention("a", "PERSON", "John", 0, 4, 0.5),
		mention("b", "PERSON", "John Smith", 0, 10, 0.7),
		mention("c", "PERSON", "Smith", 5, 10, 0.5),
	})
	require.Len(t, merged, 1)
	assert.Equal(t, 0, merged[0].Span.Start)
	assert.Equal(t, 10, merged[0].Span.End)
	assert.Equal(t, "John Smith", merged[0].Text)
	assert.Len(t, merged[0].Sources, 3)
}

func TestMergeEmptyInput(t *testing.T) {
	m := NewMerger(0.5)
	assert.Empty(t, m.Merge(nil))
}

func TestMergeOutputSortedBySpan(t *testing.T) {
	m := NewMerger(0.5)

	merged := m.Merge([]types.Mention{
		mention("pattern", "DATE", "2023-01-05", 50, 60, 0.95),
		mention("pattern", "ORG", "FBI", 12, 15, 0.6),
		mention("pattern", "PERSON", "John Smith", 20, 30, 0.5),
	})
	require.Len(t, merged, 3)
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].Span.Start, merged[i].Span.Start)
	}
}
