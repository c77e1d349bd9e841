package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JordanCoin/openfoia/pkg/types"
)

func merged(docID string, entityType, text string, start int) types.MergedMention {
	return types.MergedMention{
		Type:       entityType,
		Text:       text,
		Span:       types.Span{DocumentID: docID, Start: start, End: start + len(text)},
		Confidence: 0.9,
	}
}

func TestResolveCreatesNewEntities(t *testing.T) {
	r := NewResolver(0.75)

	res := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
		merged("doc-1", types.EntityTypeOrganization, "Federal Bureau of Investigation", 20),
	}, nil)

	require.Len(t, res.NewEntities, 2)
	require.Len(t, res.Mentions, 2)
	assert.Empty(t, res.NewAliases)
	assert.Equal(t, res.NewEntities[0].ID, res.Mentions[0].EntityID)
	assert.Equal(t, types.EntityTypePerson, res.NewEntities[0].Type)
	assert.Equal(t, "John Smith", res.NewEntities[0].Name)
}

func TestResolveExactMatchAcrossDocuments(t *testing.T) {
	r := NewResolver(0.75)

	first := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
	}, nil)
	require.Len(t, first.NewEntities, 1)
	r.Apply(first)

	second := r.Resolve([]types.MergedMention{
		merged("doc-2", types.EntityTypePerson, "john smith", 5),
	}, nil)
	assert.Empty(t, second.NewEntities)
	require.Len(t, second.Mentions, 1)
	assert.Equal(t, first.NewEntities[0].ID, second.Mentions[0].EntityID)
	// Raw literal differs from the canonical name, so it is recorded as
	// an alias even though the normalized forms are identical.
	require.Len(t, second.NewAliases, 1)
	assert.Equal(t, "john smith", second.NewAliases[0].Alias)
}

func TestResolveFuzzyMatch(t *testing.T) {
	// "j smith" vs "john smith" scores 0.70, so the threshold must sit
	// at or below that for the abbreviated form to fold in.
	r := NewResolver(0.7)

	first := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
	}, nil)
	r.Apply(first)

	second := r.Resolve([]types.MergedMention{
		merged("doc-2", types.EntityTypePerson, "J. Smith", 0),
	}, nil)
	assert.Empty(t, second.NewEntities)
	require.Len(t, second.Mentions, 1)
	assert.Equal(t, first.NewEntities[0].ID, second.Mentions[0].EntityID)
	require.Len(t, second.NewAliases, 1)
	assert.Equal(t, "J. Smith", second.NewAliases[0].Alias)
}

func TestResolveBelowThresholdCreatesNew(t *testing.T) {
	r := NewResolver(0.75)

	first := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
	}, nil)
	r.Apply(first)

	second := r.Resolve([]types.MergedMention{
		merged("doc-2", types.EntityTypePerson, "J. Smith", 0),
	}, nil)
	require.Len(t, second.NewEntities, 1)
	assert.NotEqual(t, first.NewEntities[0].ID, second.NewEntities[0].ID)
}

func TestResolveTypeRestricted(t *testing.T) {
	r := NewResolver(0.75)

	first := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "Jordan", 0),
	}, nil)
	r.Apply(first)

	// Same literal, different type: must not collapse into the person.
	second := r.Resolve([]types.MergedMention{
		merged("doc-2", types.EntityTypeLocation, "Jordan", 0),
	}, nil)
	require.Len(t, second.NewEntities, 1)
	assert.NotEqual(t, first.NewEntities[0].ID, second.NewEntities[0].ID)
}

func TestResolveSameDocumentOverlay(t *testing.T) {
	r := NewResolver(0.75)

	// Two occurrences of the same new name inside one document must
	// resolve to the single staged entity, not two.
	res := r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
		merged("doc-1", types.EntityTypePerson, "John Smith", 120),
	}, nil)
	require.Len(t, res.NewEntities, 1)
	require.Len(t, res.Mentions, 2)
	assert.Equal(t, res.Mentions[0].EntityID, res.Mentions[1].EntityID)
}

func TestResolveSkipsSeenSpans(t *testing.T) {
	r := NewResolver(0.75)

	m := merged("doc-1", types.EntityTypePerson, "John Smith", 0)
	seen := map[SpanKey]bool{KeyFor(m.Span): true}

	res := r.Resolve([]types.MergedMention{m}, seen)
	assert.Empty(t, res.Mentions)
	assert.Empty(t, res.NewEntities)
}

func TestResolveNotAppliedOnFailure(t *testing.T) {
	r := NewResolver(0.75)

	// Resolve without Apply: a failed commit must leave the index clean.
	r.Resolve([]types.MergedMention{
		merged("doc-1", types.EntityTypePerson, "John Smith", 0),
	}, nil)

	_, ok := r.MatchLiteral(types.EntityTypePerson, "John Smith")
	assert.False(t, ok)
}

func TestLoadSeedsIndex(t *testing.T) {
	r := NewResolver(0.75)
	r.Load([]*types.Entity{
		{ID: "ent:seed", Type: types.EntityTypeOrganization, Name: "Acme Corp", Aliases: []string{"ACME"}},
	})

	id, ok := r.MatchLiteral(types.EntityTypeOrganization, "ACME")
	require.True(t, ok)
	assert.Equal(t, "ent:seed", id)
}

func TestApplyMerge(t *testing.T) {
	r := NewResolver(0.75)
	r.Load([]*types.Entity{
		{ID: "ent:a", Type: types.EntityTypePerson, Name: "John Smith"},
		{ID: "ent:b", Type: types.EntityTypePerson, Name: "Jonathan Smith"},
	})

	r.ApplyMerge("ent:a", "ent:b")

	id, ok := r.MatchLiteral(types.EntityTypePerson, "Jonathan Smith")
	require.True(t, ok)
	assert.Equal(t, "ent:a", id, "absorbed name should resolve to the survivor")
}

func TestMatchAnyType(t *testing.T) {
	r := NewResolver(0.75)
	r.Load([]*types.Entity{
		{ID: "ent:org", Type: types.EntityTypeOrganization, Name: "Federal Bureau of Investigation"},
	})

	id, ok := r.MatchAnyType("Federal Bureau of Investigation")
	require.True(t, ok)
	assert.Equal(t, "ent:org", id)

	_, ok = r.MatchAnyType("completely unknown literal")
	assert.False(t, ok)
}
