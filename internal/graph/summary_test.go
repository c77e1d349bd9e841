package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JordanCoin/openfoia/pkg/types"
)

func summaryMention(entityType, text string, confidence float64) types.MergedMention {
	return types.MergedMention{
		Type:       entityType,
		Text:       text,
		Confidence: confidence,
	}
}

func TestBuildSummaryGroupsByType(t *testing.T) {
	mentions := []types.MergedMention{
		summaryMention(types.EntityTypePerson, "John Smith", 0.85),
		summaryMention(types.EntityTypeOrganization, "FBI", 0.6),
		summaryMention(types.EntityTypePerson, "Jane Doe", 0.95),
	}
	signals := []types.RelationSignal{
		{FromText: "John Smith", ToText: "FBI", Type: types.RelWorksFor},
	}

	got := buildSummary(mentions, signals)

	assert.Contains(t, got, "## Entity Extraction Summary")
	assert.Contains(t, got, "### PERSON (2)")
	assert.Contains(t, got, "### ORG (1)")
	assert.Contains(t, got, "- FBI [60%]")
	assert.Contains(t, got, "John Smith -> works_for -> FBI")

	// Within a type, stronger mentions come first.
	assert.Less(t, strings.Index(got, "Jane Doe"), strings.Index(got, "John Smith"))
	// Type sections are alphabetical, so the listing is deterministic.
	assert.Less(t, strings.Index(got, "### ORG"), strings.Index(got, "### PERSON"))
}

func TestBuildSummaryTruncatesLongGroups(t *testing.T) {
	var mentions []types.MergedMention
	for i := 0; i < 14; i++ {
		mentions = append(mentions, summaryMention(types.EntityTypePerson, fmt.Sprintf("Person %02d", i), 0.9))
	}

	got := buildSummary(mentions, nil)

	assert.Contains(t, got, "### PERSON (14)")
	assert.Contains(t, got, "... and 4 more")
	assert.Equal(t, summaryMaxPerType, strings.Count(got, "- Person"))
}

func TestBuildSummaryEmptyInput(t *testing.T) {
	assert.Empty(t, buildSummary(nil, nil))
}
