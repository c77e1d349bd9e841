package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JordanCoin/openfoia/internal/resolve"
	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/pkg/types"
)

func resolved(entityID, entityType, text string, start int) resolve.ResolvedMention {
	return resolve.ResolvedMention{
		EntityID: entityID,
		Mention: types.MergedMention{
			Type:       entityType,
			Text:       text,
			Span:       types.Span{DocumentID: "doc-1", Start: start, End: start + len(text)},
			Confidence: 0.9,
		},
	}
}

func TestBuildCoOccurrence(t *testing.T) {
	b := NewBuilder(100, resolve.NewResolver(0.75))

	edges := b.Build([]resolve.ResolvedMention{
		resolved("ent:a", types.EntityTypePerson, "John Smith", 0),
		resolved("ent:b", types.EntityTypeOrganization, "FBI", 30),
	}, nil)

	require.Len(t, edges, 1)
	e := edges[0]
	assert.Equal(t, types.RelCoOccurs, e.Type)
	assert.False(t, e.Directed)
	// Canonical endpoint order regardless of mention order.
	assert.Equal(t, "ent:a", e.SourceID)
	assert.Equal(t, "ent:b", e.TargetID)
	require.Len(t, e.Evidence, 1)
	assert.Equal(t, 0, e.Evidence[0].Span.Start)
	assert.Equal(t, 33, e.Evidence[0].Span.End)
}

func TestBuildWindowLimit(t *testing.T) {
	b := NewBuilder(100, resolve.NewResolver(0.75))

	edges := b.Build([]resolve.ResolvedMention{
		resolved("ent:a", types.EntityTypePerson, "John Smith", 0),
		resolved("ent:b", types.EntityTypeOrganization, "FBI", 500),
	}, nil)
	assert.Empty(t, edges, "mentions beyond the window must not co-occur")
}

func TestBuildNoSelfEdges(t *testing.T) {
	b := NewBuilder(100, resolve.NewResolver(0.75))

	edges := b.Build([]resolve.ResolvedMention{
		resolved("ent:a", types.EntityTypePerson, "John Smith", 0),
		resolved("ent:a", types.EntityTypePerson, "J. Smith", 30),
	}, nil)
	assert.Empty(t, edges, "two mentions of one entity are not a relationship")
}

func TestBuildRepeatedPairAccumulates(t *testing.T) {
	b := NewBuilder(100, resolve.NewResolver(0.75))

	edges := b.Build([]resolve.ResolvedMention{
		resolved("ent:a", types.EntityTypePerson, "John Smith", 0),
		resolved("ent:b", types.EntityTypeOrganization, "FBI", 30),
		resolved("ent:a", types.EntityTypePerson, "Smith", 200),
		resolved("ent:b", types.EntityTypeOrganization, "FBI", 240),
	}, nil)

	require.Len(t, edges, 1, "repeated pair stays one edge upsert")
	assert.Len(t, edges[0].Evidence, 3)
}

func TestBuildDirectedSignals(t *testing.T) {
	b := NewBuilder(100, resolve.NewResolver(0.75))

	mentions := []resolve.ResolvedMention{
		resolved("ent:a", types.EntityTypePerson, "John Smith", 0),
		resolved("ent:b", types.EntityTypeOrganization, "FBI", 30),
	}
	signals := []types.RelationSignal{
		{
			FromText: "John Smith", ToText: "FBI", Type: types.RelWorksFor,
			Span:       types.Span{DocumentID: "doc-1", Start: 0, End: 33},
			Confidence: 0.6,
		},
		{
			FromText: "John Smith", ToText: "Unknown Actor", Type: types.RelCommunicatedWith,
			Span:       types.Span{DocumentID: "doc-1", Start: 0, End: 33},
			Confidence: 0.9,
		},
	}

	edges := b.Build(mentions, signals)

	var worksFor *storage.EdgeUpsert
	for i := range edges {
		if edges[i].Type == types.RelWorksFor {
			worksFor = &edges[i]
		}
		assert.NotEqual(t, types.RelCommunicatedWith, edges[i].Type,
			"signal with unresolvable endpoint must be dropped")
	}
	require.NotNil(t, worksFor, "works_for edge missing")
	assert.True(t, worksFor.Directed)
	assert.Equal(t, "ent:a", worksFor.SourceID)
	assert.Equal(t, "ent:b", worksFor.TargetID)
	require.Len(t, worksFor.Evidence, 1)
	// Weak signal confidence is floored for asserted relations.
	assert.InDelta(t, directedFloor, worksFor.Evidence[0].Confidence, 1e-9)
}
