// Package resolve clusters merged mentions across documents into
// canonical entities. Matching is type-restricted and alias-aware: exact
// normalized match first, then fuzzy similarity against a configurable
// threshold. The resolver keeps an in-memory index of the live entity
// set; proposed resolutions are applied to the index only after the
// graph store commits them, so a failed commit leaves no trace.
package resolve

import (
	"log"
	"sync"
	"time"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// SpanKey identifies a mention by its source location. Re-ingesting a
// document produces identical keys, which is what makes resolution
// idempotent.
type SpanKey struct {
	DocumentID string
	Start      int
	End        int
}

// KeyFor returns the span key for a span.
func KeyFor(s types.Span) SpanKey {
	return SpanKey{DocumentID: s.DocumentID, Start: s.Start, End: s.End}
}

// ResolvedMention binds one merged mention to the entity it resolved to.
type ResolvedMention struct {
	Mention  types.MergedMention
	EntityID string
}

// AliasAdd records a novel literal to append to an entity's alias set.
type AliasAdd struct {
	EntityID string
	Alias    string
}

// Resolution is the proposed outcome of resolving one document. Nothing
// in the shared index changes until Apply is called after a successful
// graph commit.
type Resolution struct {
	Mentions    []ResolvedMention
	NewEntities []*types.Entity
	NewAliases  []AliasAdd
}

// entry is the matching view of one live entity.
type entry struct {
	id         string
	entityType string
	name       string
	literals   map[string]bool // raw literals: canonical name + aliases
	normalized map[string]bool // normalized forms of the literals
}

// Resolver matches merged mentions against the live entity set.
type Resolver struct {
	threshold float64

	mu     sync.RWMutex
	byType map[string][]*entry
	byID   map[string]*entry
}

// NewResolver creates a resolver with the given fuzzy-match threshold.
func NewResolver(threshold float64) *Resolver {
	return &Resolver{
		threshold: threshold,
		byType:    make(map[string][]*entry),
		byID:      make(map[string]*entry),
	}
}

// Load seeds the index from the persisted entity set. Called once at
// startup so a restart does not re-create entities that already exist.
func (r *Resolver) Load(entities []*types.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		ent := newEntry(e.ID, e.Type, e.Name)
		for _, a := range e.Aliases {
			ent.addLiteral(a)
		}
		r.byType[e.Type] = append(r.byType[e.Type], ent)
		r.byID[e.ID] = ent
	}
}

func newEntry(id, entityType, name string) *entry {
	ent := &entry{
		id:         id,
		entityType: entityType,
		name:       name,
		literals:   make(map[string]bool),
		normalized: make(map[string]bool),
	}
	ent.addLiteral(name)
	return ent
}

func (e *entry) addLiteral(literal string) {
	e.literals[literal] = true
	if n := NormalizeName(literal); n != "" {
		e.normalized[n] = true
	}
}

// Resolve decides, for each merged mention of one document, whether it
// extends an existing entity or creates a new one. Mentions whose span
// key appears in seen (already persisted for this document) are dropped
// before matching, making re-ingestion idempotent. Entities created
// earlier in the same document are visible to later mentions.
func (r *Resolver) Resolve(merged []types.MergedMention, seen map[SpanKey]bool) *Resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := &Resolution{}
	// Overlay of entries staged within this resolution, by type.
	staged := make(map[string][]*entry)
	stagedAliases := make(map[string]map[string]bool)

	now := time.Now().UTC()

	for _, mm := range merged {
		if seen[KeyFor(mm.Span)] {
			continue
		}

		ent := r.match(mm.Type, mm.Text, staged, stagedAliases)
		if ent == nil {
			e := &types.Entity{
				ID:        types.NewEntityID(),
				Type:      mm.Type,
				Name:      mm.Text,
				CreatedAt: now,
				UpdatedAt: now,
			}
			res.NewEntities = append(res.NewEntities, e)
			staged[mm.Type] = append(staged[mm.Type], newEntry(e.ID, e.Type, e.Name))
			res.Mentions = append(res.Mentions, ResolvedMention{Mention: mm, EntityID: e.ID})
			continue
		}

		if !ent.literals[mm.Text] && !stagedAlias(stagedAliases, ent.id, mm.Text) {
			res.NewAliases = append(res.NewAliases, AliasAdd{EntityID: ent.id, Alias: mm.Text})
			if stagedAliases[ent.id] == nil {
				stagedAliases[ent.id] = make(map[string]bool)
			}
			stagedAliases[ent.id][mm.Text] = true
		}
		res.Mentions = append(res.Mentions, ResolvedMention{Mention: mm, EntityID: ent.id})
	}

	return res
}

func stagedAlias(staged map[string]map[string]bool, entityID, literal string) bool {
	return staged[entityID] != nil && staged[entityID][literal]
}

// match finds the entity a literal belongs to: exact normalized match
// first, then the best fuzzy candidate at or above the threshold. When
// several candidates clear the threshold the highest similarity wins;
// the threshold rule always decides, a mention is never left unresolved.
func (r *Resolver) match(entityType, literal string, staged map[string][]*entry, stagedAliases map[string]map[string]bool) *entry {
	normalized := NormalizeName(literal)
	if normalized == "" {
		return nil
	}

	candidates := make([]*entry, 0, len(r.byType[entityType])+len(staged[entityType]))
	candidates = append(candidates, r.byType[entityType]...)
	candidates = append(candidates, staged[entityType]...)

	// Exact pass over canonical names, aliases, and staged aliases.
	for _, ent := range candidates {
		if ent.normalized[normalized] {
			return ent
		}
		for alias := range stagedAliases[ent.id] {
			if NormalizeName(alias) == normalized {
				return ent
			}
		}
	}

	// Fuzzy pass.
	var best *entry
	var bestScore float64
	for _, ent := range candidates {
		for form := range ent.normalized {
			if score := Similarity(normalized, form); score > bestScore {
				bestScore = score
				best = ent
			}
		}
	}
	if best != nil && bestScore >= r.threshold {
		if bestScore < 1 {
			log.Printf("resolve: fuzzy-matched %q to entity %s (%q) at %.2f", literal, best.id, best.name, bestScore)
		}
		return best
	}
	return nil
}

// Apply folds a resolution into the shared index. Call only after the
// graph store committed the same resolution.
func (r *Resolver) Apply(res *Resolution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range res.NewEntities {
		ent := newEntry(e.ID, e.Type, e.Name)
		r.byType[e.Type] = append(r.byType[e.Type], ent)
		r.byID[e.ID] = ent
	}
	for _, a := range res.NewAliases {
		if ent, ok := r.byID[a.EntityID]; ok {
			ent.addLiteral(a.Alias)
		}
	}
}

// ApplyMerge updates the index after an explicit entity merge: the
// absorbed entity's literals become the survivor's and the absorbed
// entry is removed.
func (r *Resolver) ApplyMerge(survivingID, absorbedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	absorbed, ok := r.byID[absorbedID]
	if !ok {
		return
	}
	if survivor, ok := r.byID[survivingID]; ok {
		for literal := range absorbed.literals {
			survivor.addLiteral(literal)
		}
	}

	delete(r.byID, absorbedID)
	entries := r.byType[absorbed.entityType]
	for i, ent := range entries {
		if ent.id == absorbedID {
			r.byType[absorbed.entityType] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
}

// MatchLiteral resolves a literal against the live index without staging
// anything. The relationship builder uses it to bind extractor-asserted
// relation endpoints to entities.
func (r *Resolver) MatchLiteral(entityType, literal string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent := r.match(entityType, literal, nil, nil)
	if ent == nil {
		return "", false
	}
	return ent.id, true
}

// MatchAnyType resolves a literal across all entity types, returning the
// best match at or above the threshold. Used for relation signals, which
// carry no type information for their endpoints.
func (r *Resolver) MatchAnyType(literal string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := NormalizeName(literal)
	if normalized == "" {
		return "", false
	}

	var best *entry
	var bestScore float64
	for _, entries := range r.byType {
		for _, ent := range entries {
			for form := range ent.normalized {
				if score := Similarity(normalized, form); score > bestScore {
					bestScore = score
					best = ent
				}
			}
		}
	}
	if best != nil && bestScore >= r.threshold {
		return best.id, true
	}
	return "", false
}
