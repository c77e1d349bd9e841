// Package sqlite implements storage.GraphStore on SQLite. It is the
// default backend: zero-dependency deployment, with WAL mode for read
// concurrency and a single write connection so the graph only ever has
// one writer.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/pkg/types"
)

// excerptRadius is how much surrounding text evidence queries return on
// each side of a span.
const excerptRadius = 80

// GraphStore implements storage.GraphStore using SQLite.
type GraphStore struct {
	db            *sql.DB
	flagThreshold float64
}

var _ storage.GraphStore = (*GraphStore)(nil)

// NewGraphStore opens a SQLite graph store. Edges whose derived
// confidence falls below flagThreshold are marked flagged rather than
// dropped.
func NewGraphStore(dsn string, flagThreshold float64) (*GraphStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s failed: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &GraphStore{db: db, flagThreshold: flagThreshold}, nil
}

// Close releases the database handle.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

// compoundConfidence derives an edge's confidence from its full evidence
// set: the probability that at least one piece of evidence is right,
// assuming independence, capped below certainty. Evidence only
// accumulates, so the result is monotonically non-decreasing.
func compoundConfidence(confidences []float64) float64 {
	doubt := 1.0
	for _, c := range confidences {
		doubt *= 1 - c
	}
	confidence := 1 - doubt
	if confidence > 0.99 {
		confidence = 0.99
	}
	return confidence
}

// CommitDocument applies one document's contribution in a single
// transaction.
func (s *GraphStore) CommitDocument(ctx context.Context, commit *storage.DocumentCommit) error {
	doc := commit.Document
	fail := func(err error) error {
		return &storage.CommitError{DocumentID: doc.ID, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return fail(fmt.Errorf("marshal pages: %w", err))
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, text, checksum, pages, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			checksum = excluded.checksum,
			pages = excluded.pages,
			ingested_at = excluded.ingested_at`,
		doc.ID, doc.Text, doc.Checksum, string(pages), doc.IngestedAt.UTC())
	if err != nil {
		return fail(fmt.Errorf("upsert document: %w", err))
	}

	for _, e := range commit.NewEntities {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (id, type, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Type, e.Name, e.CreatedAt.UTC(), now)
		if err != nil {
			return fail(fmt.Errorf("insert entity %s: %w", e.ID, err))
		}
	}

	for _, a := range commit.NewAliases {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entity_aliases (entity_id, alias)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			a.EntityID, a.Alias)
		if err != nil {
			return fail(fmt.Errorf("insert alias for %s: %w", a.EntityID, err))
		}
	}

	for _, m := range commit.Mentions {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO mentions (entity_id, document_id, start_offset, end_offset, type, text, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			m.EntityID, m.Mention.Span.DocumentID, m.Mention.Span.Start, m.Mention.Span.End,
			m.Mention.Type, m.Mention.Text, m.Mention.Confidence)
		if err != nil {
			return fail(fmt.Errorf("insert mention: %w", err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entities SET updated_at = ? WHERE id = ?`, now, m.EntityID); err != nil {
				return fail(fmt.Errorf("touch entity %s: %w", m.EntityID, err))
			}
		}
	}

	for _, e := range commit.Edges {
		if err := s.upsertEdge(ctx, tx, e, now); err != nil {
			return fail(err)
		}
	}

	if err := setStatusTx(ctx, tx, types.DocumentStatus{
		DocumentID:    doc.ID,
		Status:        types.DocCommitted,
		ExtractorGaps: commit.ExtractorGaps,
		Summary:       commit.Summary,
	}, now); err != nil {
		return fail(err)
	}

	if err := tx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

// upsertEdge creates or strengthens one edge inside a commit
// transaction: insert the row if absent, fold in the new evidence, then
// recompute confidence and the flag from the full evidence set.
func (s *GraphStore) upsertEdge(ctx context.Context, tx *sql.Tx, e storage.EdgeUpsert, now time.Time) error {
	var edgeID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM edges WHERE source_id = ? AND target_id = ? AND type = ?`,
		e.SourceID, e.TargetID, e.Type).Scan(&edgeID)
	switch {
	case err == sql.ErrNoRows:
		edgeID = types.NewEdgeID()
		directed := 0
		if e.Directed {
			directed = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edges (id, source_id, target_id, type, directed, confidence, flagged, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
			edgeID, e.SourceID, e.TargetID, e.Type, directed, now, now)
		if err != nil {
			return fmt.Errorf("insert edge %s-%s: %w", e.SourceID, e.TargetID, err)
		}
	case err != nil:
		return fmt.Errorf("lookup edge %s-%s: %w", e.SourceID, e.TargetID, err)
	}

	for _, ev := range e.Evidence {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edge_evidence (edge_id, document_id, start_offset, end_offset, confidence)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			edgeID, ev.Span.DocumentID, ev.Span.Start, ev.Span.End, ev.Confidence)
		if err != nil {
			return fmt.Errorf("insert evidence for edge %s: %w", edgeID, err)
		}
	}

	return s.recomputeEdge(ctx, tx, edgeID, now)
}

// recomputeEdge re-derives an edge's confidence and flag from its full
// evidence set.
func (s *GraphStore) recomputeEdge(ctx context.Context, tx *sql.Tx, edgeID string, now time.Time) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT confidence FROM edge_evidence WHERE edge_id = ?`, edgeID)
	if err != nil {
		return fmt.Errorf("load evidence for edge %s: %w", edgeID, err)
	}
	defer rows.Close()

	var confidences []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return err
		}
		confidences = append(confidences, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	confidence := compoundConfidence(confidences)
	flagged := 0
	if confidence < s.flagThreshold {
		flagged = 1
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE edges SET confidence = ?, flagged = ?, updated_at = ? WHERE id = ?`,
		confidence, flagged, now, edgeID)
	if err != nil {
		return fmt.Errorf("update edge %s: %w", edgeID, err)
	}
	return nil
}

// Entity retrieves one entity with aliases and mention count.
func (s *GraphStore) Entity(ctx context.Context, id string) (*types.Entity, error) {
	e := &types.Entity{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT type, name, created_at, updated_at,
		       (SELECT COUNT(*) FROM mentions WHERE entity_id = entities.id)
		FROM entities WHERE id = ?`, id).
		Scan(&e.Type, &e.Name, &e.CreatedAt, &e.UpdatedAt, &e.MentionCount)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get entity %s: %w", id, err)
	}

	aliases, err := s.entityAliases(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Aliases = aliases
	return e, nil
}

func (s *GraphStore) entityAliases(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alias FROM entity_aliases WHERE entity_id = ? ORDER BY alias`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aliases for %s: %w", id, err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// Entities lists entities matching the filter, most-mentioned first.
func (s *GraphStore) Entities(ctx context.Context, filter storage.EntityFilter) ([]*types.Entity, error) {
	query := `
		SELECT id, type, name, created_at, updated_at,
		       (SELECT COUNT(*) FROM mentions WHERE entity_id = entities.id) AS mention_count
		FROM entities`
	var conds []string
	var args []any
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.NameContains != "" {
		conds = append(conds, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.NameContains)+"%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY mention_count DESC, name"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list entities: %w", err)
	}
	defer rows.Close()

	var entities []*types.Entity
	for rows.Next() {
		e := &types.Entity{}
		if err := rows.Scan(&e.ID, &e.Type, &e.Name, &e.CreatedAt, &e.UpdatedAt, &e.MentionCount); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range entities {
		aliases, err := s.entityAliases(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		e.Aliases = aliases
	}
	return entities, nil
}

// Neighborhood walks the edge set breadth-first from the root, up to
// maxHops away, and returns the visited entities plus every edge among
// them.
func (s *GraphStore) Neighborhood(ctx context.Context, entityID string, maxHops int) (*storage.Neighborhood, error) {
	root, err := s.Entity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		next, err := s.adjacent(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, id := range next {
			if !visited[id] {
				visited[id] = true
				frontier = append(frontier, id)
			}
		}
	}

	n := &storage.Neighborhood{Root: root}
	for id := range visited {
		e, err := s.Entity(ctx, id)
		if err != nil {
			return nil, err
		}
		n.Entities = append(n.Entities, e)
	}

	edges, err := s.edgesAmong(ctx, visited)
	if err != nil {
		return nil, err
	}
	n.Edges = edges
	return n, nil
}

// adjacent returns every entity one edge away from any id in the set.
func (s *GraphStore) adjacent(ctx context.Context, ids []string) ([]string, error) {
	ph := placeholders(len(ids))
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT source_id, target_id FROM edges
		WHERE source_id IN (%s) OR target_id IN (%s)`, ph, ph), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: adjacent edges: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		out = append(out, src, tgt)
	}
	return out, rows.Err()
}

// edgesAmong returns every edge whose both endpoints are in the set.
func (s *GraphStore) edgesAmong(ctx context.Context, ids map[string]bool) ([]*types.Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	ph := placeholders(len(list))
	args := make([]any, 0, len(list)*2)
	for _, id := range list {
		args = append(args, id)
	}
	for _, id := range list {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source_id, target_id, type, directed, confidence, flagged, created_at, updated_at
		FROM edges
		WHERE source_id IN (%s) AND target_id IN (%s)
		ORDER BY confidence DESC`, ph, ph), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: edges among: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]*types.Edge, error) {
	var edges []*types.Edge
	for rows.Next() {
		e := &types.Edge{}
		var directed, flagged int
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Type, &directed,
			&e.Confidence, &flagged, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Directed = directed != 0
		e.Flagged = flagged != 0
		e.Level = types.LevelFor(e.Confidence)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Edge retrieves one edge with its evidence spans.
func (s *GraphStore) Edge(ctx context.Context, id string) (*types.Edge, error) {
	e := &types.Edge{ID: id}
	var directed, flagged int
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, target_id, type, directed, confidence, flagged, created_at, updated_at
		FROM edges WHERE id = ?`, id).
		Scan(&e.SourceID, &e.TargetID, &e.Type, &directed, &e.Confidence, &flagged,
			&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get edge %s: %w", id, err)
	}
	e.Directed = directed != 0
	e.Flagged = flagged != 0
	e.Level = types.LevelFor(e.Confidence)

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, start_offset, end_offset FROM edge_evidence
		WHERE edge_id = ? ORDER BY document_id, start_offset`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: evidence for edge %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var span types.Span
		if err := rows.Scan(&span.DocumentID, &span.Start, &span.End); err != nil {
			return nil, err
		}
		e.Evidence = append(e.Evidence, span)
	}
	return e, rows.Err()
}

// EntityEvidence returns every mention backing an entity with
// surrounding document text.
func (s *GraphStore) EntityEvidence(ctx context.Context, entityID string) ([]storage.EvidenceRecord, error) {
	if _, err := s.Entity(ctx, entityID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.document_id, m.start_offset, m.end_offset, m.text, d.text
		FROM mentions m
		JOIN documents d ON d.id = m.document_id
		WHERE m.entity_id = ?
		ORDER BY m.document_id, m.start_offset`, entityID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: evidence for entity %s: %w", entityID, err)
	}
	defer rows.Close()

	return scanEvidence(rows)
}

// EdgeEvidence returns the evidence spans backing an edge with
// surrounding document text.
func (s *GraphStore) EdgeEvidence(ctx context.Context, edgeID string) ([]storage.EvidenceRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE id = ?`, edgeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("sqlite: lookup edge %s: %w", edgeID, err)
	}
	if exists == 0 {
		return nil, storage.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ev.document_id, ev.start_offset, ev.end_offset,
		       SUBSTR(d.text, ev.start_offset + 1, ev.end_offset - ev.start_offset),
		       d.text
		FROM edge_evidence ev
		JOIN documents d ON d.id = ev.document_id
		WHERE ev.edge_id = ?
		ORDER BY ev.document_id, ev.start_offset`, edgeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: evidence for edge %s: %w", edgeID, err)
	}
	defer rows.Close()

	return scanEvidence(rows)
}

func scanEvidence(rows *sql.Rows) ([]storage.EvidenceRecord, error) {
	var records []storage.EvidenceRecord
	for rows.Next() {
		var rec storage.EvidenceRecord
		var docText string
		if err := rows.Scan(&rec.Span.DocumentID, &rec.Span.Start, &rec.Span.End,
			&rec.Text, &docText); err != nil {
			return nil, err
		}
		rec.Excerpt = excerpt(docText, rec.Span.Start, rec.Span.End)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// excerpt returns the span's text with up to excerptRadius bytes of
// context on each side.
func excerpt(text string, start, end int) string {
	lo := start - excerptRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + excerptRadius
	if hi > len(text) {
		hi = len(text)
	}
	if lo > len(text) || start > end {
		return ""
	}
	return text[lo:hi]
}

// MentionSpans returns the spans of every mention persisted for a
// document.
func (s *GraphStore) MentionSpans(ctx context.Context, documentID string) ([]types.Span, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_offset, end_offset FROM mentions
		WHERE document_id = ? ORDER BY start_offset`, documentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: mention spans for %s: %w", documentID, err)
	}
	defer rows.Close()

	var spans []types.Span
	for rows.Next() {
		span := types.Span{DocumentID: documentID}
		if err := rows.Scan(&span.Start, &span.End); err != nil {
			return nil, err
		}
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

// LoadEntities returns the full entity set with aliases.
func (s *GraphStore) LoadEntities(ctx context.Context) ([]*types.Entity, error) {
	return s.Entities(ctx, storage.EntityFilter{})
}

// MergeEntities absorbs absorbedID into survivingID in one transaction.
func (s *GraphStore) MergeEntities(ctx context.Context, survivingID, absorbedID, actor string) (*types.MergeRecord, error) {
	surviving, err := s.Entity(ctx, survivingID)
	if err != nil {
		return nil, err
	}
	absorbed, err := s.Entity(ctx, absorbedID)
	if err != nil {
		return nil, err
	}
	if surviving.Type != absorbed.Type {
		return nil, fmt.Errorf("sqlite: merge %s into %s: %w", absorbedID, survivingID, storage.ErrTypeMismatch)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin merge: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// The absorbed identity survives as aliases on the survivor.
	for _, literal := range append([]string{absorbed.Name}, absorbed.Aliases...) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_aliases (entity_id, alias) VALUES (?, ?)
			ON CONFLICT DO NOTHING`, survivingID, literal); err != nil {
			return nil, fmt.Errorf("sqlite: move alias %q: %w", literal, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE mentions SET entity_id = ? WHERE entity_id = ?`, survivingID, absorbedID); err != nil {
		return nil, fmt.Errorf("sqlite: move mentions: %w", err)
	}

	if err := s.mergeEdges(ctx, tx, survivingID, absorbedID, now); err != nil {
		return nil, err
	}

	// Cascades remove remaining aliases and evidence.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, absorbedID); err != nil {
		return nil, fmt.Errorf("sqlite: delete absorbed entity: %w", err)
	}

	record := &types.MergeRecord{
		ID:           types.NewMergeID(),
		SurvivingID:  survivingID,
		AbsorbedID:   absorbedID,
		AbsorbedName: absorbed.Name,
		Actor:        actor,
		MergedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entity_merges (id, surviving_id, absorbed_id, absorbed_name, actor, merged_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.SurvivingID, record.AbsorbedID, record.AbsorbedName,
		record.Actor, record.MergedAt); err != nil {
		return nil, fmt.Errorf("sqlite: write merge record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = ? WHERE id = ?`, now, survivingID); err != nil {
		return nil, fmt.Errorf("sqlite: touch survivor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit merge: %w", err)
	}
	return record, nil
}

// mergeEdges re-points every edge touching the absorbed entity at the
// survivor. Evidence from an edge that collides with an existing
// survivor edge is folded into it; an edge between the two merging
// entities becomes a self-loop and is dropped.
func (s *GraphStore) mergeEdges(ctx context.Context, tx *sql.Tx, survivingID, absorbedID string, now time.Time) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, source_id, target_id, type, directed FROM edges
		WHERE source_id = ? OR target_id = ?`, absorbedID, absorbedID)
	if err != nil {
		return fmt.Errorf("sqlite: edges of absorbed: %w", err)
	}

	type moved struct {
		id       string
		src, tgt string
		relType  string
		directed bool
	}
	var toMove []moved
	for rows.Next() {
		var m moved
		var directed int
		if err := rows.Scan(&m.id, &m.src, &m.tgt, &m.relType, &directed); err != nil {
			rows.Close()
			return err
		}
		m.directed = directed != 0
		toMove = append(toMove, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	touched := make(map[string]bool)
	for _, m := range toMove {
		src, tgt := m.src, m.tgt
		if src == absorbedID {
			src = survivingID
		}
		if tgt == absorbedID {
			tgt = survivingID
		}
		if src == tgt {
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, m.id); err != nil {
				return fmt.Errorf("sqlite: drop self-loop %s: %w", m.id, err)
			}
			continue
		}
		if !m.directed && src > tgt {
			src, tgt = tgt, src
		}

		var existingID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM edges WHERE source_id = ? AND target_id = ? AND type = ? AND id != ?`,
			src, tgt, m.relType, m.id).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `
				UPDATE edges SET source_id = ?, target_id = ?, updated_at = ? WHERE id = ?`,
				src, tgt, now, m.id); err != nil {
				return fmt.Errorf("sqlite: re-point edge %s: %w", m.id, err)
			}
			touched[m.id] = true
		case err != nil:
			return fmt.Errorf("sqlite: collision lookup for edge %s: %w", m.id, err)
		default:
			// Collision: fold evidence into the surviving edge.
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO edge_evidence (edge_id, document_id, start_offset, end_offset, confidence)
				SELECT ?, document_id, start_offset, end_offset, confidence
				FROM edge_evidence WHERE edge_id = ?
				ON CONFLICT DO NOTHING`, existingID, m.id); err != nil {
				return fmt.Errorf("sqlite: fold evidence of %s into %s: %w", m.id, existingID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, m.id); err != nil {
				return fmt.Errorf("sqlite: drop merged edge %s: %w", m.id, err)
			}
			touched[existingID] = true
		}
	}

	for edgeID := range touched {
		if err := s.recomputeEdge(ctx, tx, edgeID, now); err != nil {
			return err
		}
	}
	return nil
}

// DocumentStatus returns the processing status of one document.
func (s *GraphStore) DocumentStatus(ctx context.Context, documentID string) (*types.DocumentStatus, error) {
	st := &types.DocumentStatus{DocumentID: documentID}
	var gaps string
	err := s.db.QueryRowContext(ctx, `
		SELECT status, reason, extractor_gaps, summary FROM document_status WHERE document_id = ?`,
		documentID).Scan(&st.Status, &st.Reason, &gaps, &st.Summary)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: status of %s: %w", documentID, err)
	}
	if err := json.Unmarshal([]byte(gaps), &st.ExtractorGaps); err != nil {
		return nil, fmt.Errorf("sqlite: decode gaps for %s: %w", documentID, err)
	}
	return st, nil
}

// SetDocumentStatus records a document's processing state.
func (s *GraphStore) SetDocumentStatus(ctx context.Context, status types.DocumentStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin status update: %w", err)
	}
	defer tx.Rollback()

	if err := setStatusTx(ctx, tx, status, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func setStatusTx(ctx context.Context, tx *sql.Tx, status types.DocumentStatus, now time.Time) error {
	gaps := status.ExtractorGaps
	if gaps == nil {
		gaps = []string{}
	}
	encoded, err := json.Marshal(gaps)
	if err != nil {
		return fmt.Errorf("encode gaps: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_status (document_id, status, reason, extractor_gaps, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			extractor_gaps = excluded.extractor_gaps,
			summary = excluded.summary,
			updated_at = excluded.updated_at`,
		status.DocumentID, string(status.Status), status.Reason, string(encoded), status.Summary, now)
	if err != nil {
		return fmt.Errorf("set status of %s: %w", status.DocumentID, err)
	}
	return nil
}

// Statuses lists every document's processing status, most recent first.
func (s *GraphStore) Statuses(ctx context.Context) ([]*types.DocumentStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, status, reason, extractor_gaps, summary
		FROM document_status ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*types.DocumentStatus
	for rows.Next() {
		st := &types.DocumentStatus{}
		var gaps string
		if err := rows.Scan(&st.DocumentID, &st.Status, &st.Reason, &gaps, &st.Summary); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(gaps), &st.ExtractorGaps); err != nil {
			return nil, fmt.Errorf("sqlite: decode gaps for %s: %w", st.DocumentID, err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
