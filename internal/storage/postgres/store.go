package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/pkg/types"
)

const excerptRadius = 80

// GraphStore implements storage.GraphStore using PostgreSQL.
type GraphStore struct {
	db            *sql.DB
	flagThreshold float64
}

var _ storage.GraphStore = (*GraphStore)(nil)

// NewGraphStore connects to PostgreSQL and ensures the schema exists.
func NewGraphStore(dsn string, flagThreshold float64) (*GraphStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	return &GraphStore{db: db, flagThreshold: flagThreshold}, nil
}

// Close releases the connection pool.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			checksum = EXCLUDED.checksum,
			pages = EXCLUDED.pages,
			ingested_at = EXCLUDED.ingested_at`,
		doc.ID, doc.Text, doc.Checksum, string(pages), doc.IngestedAt.UTC())
	if err != nil {
		return fail(fmt.Errorf("upsert document: %w", err))
	}

	for _, e := range commit.NewEntities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (id, type, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.Type, e.Name, e.CreatedAt.UTC(), now); err != nil {
			return fail(fmt.Errorf("insert entity %s: %w", e.ID, err))
		}
	}

	for _, a := range commit.NewAliases {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_aliases (entity_id, alias)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, a.EntityID, a.Alias); err != nil {
			return fail(fmt.Errorf("insert alias for %s: %w", a.EntityID, err))
		}
	}

	for _, m := range commit.Mentions {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO mentions (entity_id, document_id, start_offset, end_offset, type, text, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT DO NOTHING`,
			m.EntityID, m.Mention.Span.DocumentID, m.Mention.Span.Start, m.Mention.Span.End,
			m.Mention.Type, m.Mention.Text, m.Mention.Confidence)
		if err != nil {
			return fail(fmt.Errorf("insert mention: %w", err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entities SET updated_at = $1 WHERE id = $2`, now, m.EntityID); err != nil {
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

func (s *GraphStore) upsertEdge(ctx context.Context, tx *sql.Tx, e storage.EdgeUpsert, now time.Time) error {
	var edgeID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM edges WHERE source_id = $1 AND target_id = $2 AND type = $3`,
		e.SourceID, e.TargetID, e.Type).Scan(&edgeID)
	switch {
	case err == sql.ErrNoRows:
		edgeID = types.NewEdgeID()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edges (id, source_id, target_id, type, directed, confidence, flagged, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 0, FALSE, $6, $7)`,
			edgeID, e.SourceID, e.TargetID, e.Type, e.Directed, now, now)
		if err != nil {
			return fmt.Errorf("insert edge %s-%s: %w", e.SourceID, e.TargetID, err)
		}
	case err != nil:
		return fmt.Errorf("lookup edge %s-%s: %w", e.SourceID, e.TargetID, err)
	}

	for _, ev := range e.Evidence {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edge_evidence (edge_id, document_id, start_offset, end_offset, confidence)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING`,
			edgeID, ev.Span.DocumentID, ev.Span.Start, ev.Span.End, ev.Confidence); err != nil {
			return fmt.Errorf("insert evidence for edge %s: %w", edgeID, err)
		}
	}

	return s.recomputeEdge(ctx, tx, edgeID, now)
}

func (s *GraphStore) recomputeEdge(ctx context.Context, tx *sql.Tx, edgeID string, now time.Time) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT confidence FROM edge_evidence WHERE edge_id = $1`, edgeID)
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
	flagged := confidence < s.flagThreshold
	if _, err := tx.ExecContext(ctx, `
		UPDATE edges SET confidence = $1, flagged = $2, updated_at = $3 WHERE id = $4`,
		confidence, flagged, now, edgeID); err != nil {
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
		FROM entities WHERE id = $1`, id).
		Scan(&e.Type, &e.Name, &e.CreatedAt, &e.UpdatedAt, &e.MentionCount)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get entity %s: %w", id, err)
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
		`SELECT alias FROM entity_aliases WHERE entity_id = $1 ORDER BY alias`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: aliases for %s: %w", id, err)
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
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.NameContains != "" {
		args = append(args, "%"+filter.NameContains+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY mention_count DESC, name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list entities: %w", err)
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

// Neighborhood walks the edge set breadth-first from the root.
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

func (s *GraphStore) adjacent(ctx context.Context, ids []string) ([]string, error) {
	ph1, ph2, args := doubleInArgs(ids)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT source_id, target_id FROM edges
		WHERE source_id IN (%s) OR target_id IN (%s)`, ph1, ph2), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: adjacent edges: %w", err)
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

func (s *GraphStore) edgesAmong(ctx context.Context, ids map[string]bool) ([]*types.Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	ph1, ph2, args := doubleInArgs(list)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source_id, target_id, type, directed, confidence, flagged, created_at, updated_at
		FROM edges
		WHERE source_id IN (%s) AND target_id IN (%s)
		ORDER BY confidence DESC`, ph1, ph2), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: edges among: %w", err)
	}
	defer rows.Close()

	var edges []*types.Edge
	for rows.Next() {
		e := &types.Edge{}
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Type, &e.Directed,
			&e.Confidence, &e.Flagged, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Level = types.LevelFor(e.Confidence)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// doubleInArgs builds two IN-list placeholder strings over the same id
// list, as required by queries that test both edge endpoints.
func doubleInArgs(ids []string) (string, string, []any) {
	args := make([]any, 0, len(ids)*2)
	first := make([]string, len(ids))
	second := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		first[i] = fmt.Sprintf("$%d", len(args))
	}
	for i, id := range ids {
		args = append(args, id)
		second[i] = fmt.Sprintf("$%d", len(args))
	}
	return strings.Join(first, ", "), strings.Join(second, ", "), args
}

// Edge retrieves one edge with its evidence spans.
func (s *GraphStore) Edge(ctx context.Context, id string) (*types.Edge, error) {
	e := &types.Edge{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, target_id, type, directed, confidence, flagged, created_at, updated_at
		FROM edges WHERE id = $1`, id).
		Scan(&e.SourceID, &e.TargetID, &e.Type, &e.Directed, &e.Confidence, &e.Flagged,
			&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get edge %s: %w", id, err)
	}
	e.Level = types.LevelFor(e.Confidence)

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, start_offset, end_offset FROM edge_evidence
		WHERE edge_id = $1 ORDER BY document_id, start_offset`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: evidence for edge %s: %w", id, err)
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

// EntityEvidence returns every mention backing an entity with context.
func (s *GraphStore) EntityEvidence(ctx context.Context, entityID string) ([]storage.EvidenceRecord, error) {
	if _, err := s.Entity(ctx, entityID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.document_id, m.start_offset, m.end_offset, m.text, d.text
		FROM mentions m
		JOIN documents d ON d.id = m.document_id
		WHERE m.entity_id = $1
		ORDER BY m.document_id, m.start_offset`, entityID)
	if err != nil {
		return nil, fmt.Errorf("postgres: evidence for entity %s: %w", entityID, err)
	}
	defer rows.Close()

	return scanEvidence(rows)
}

// EdgeEvidence returns the evidence spans backing an edge with context.
func (s *GraphStore) EdgeEvidence(ctx context.Context, edgeID string) ([]storage.EvidenceRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE id = $1`, edgeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: lookup edge %s: %w", edgeID, err)
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
		WHERE ev.edge_id = $1
		ORDER BY ev.document_id, ev.start_offset`, edgeID)
	if err != nil {
		return nil, fmt.Errorf("postgres: evidence for edge %s: %w", edgeID, err)
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
		WHERE document_id = $1 ORDER BY start_offset`, documentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: mention spans for %s: %w", documentID, err)
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
		return nil, fmt.Errorf("postgres: merge %s into %s: %w", absorbedID, survivingID, storage.ErrTypeMismatch)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin merge: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	for _, literal := range append([]string{absorbed.Name}, absorbed.Aliases...) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_aliases (entity_id, alias) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, survivingID, literal); err != nil {
			return nil, fmt.Errorf("postgres: move alias %q: %w", literal, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE mentions SET entity_id = $1 WHERE entity_id = $2`, survivingID, absorbedID); err != nil {
		return nil, fmt.Errorf("postgres: move mentions: %w", err)
	}

	if err := s.mergeEdges(ctx, tx, survivingID, absorbedID, now); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, absorbedID); err != nil {
		return nil, fmt.Errorf("postgres: delete absorbed entity: %w", err)
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
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.SurvivingID, record.AbsorbedID, record.AbsorbedName,
		record.Actor, record.MergedAt); err != nil {
		return nil, fmt.Errorf("postgres: write merge record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = $1 WHERE id = $2`, now, survivingID); err != nil {
		return nil, fmt.Errorf("postgres: touch survivor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit merge: %w", err)
	}
	return record, nil
}

func (s *GraphStore) mergeEdges(ctx context.Context, tx *sql.Tx, survivingID, absorbedID string, now time.Time) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, source_id, target_id, type, directed FROM edges
		WHERE source_id = $1 OR target_id = $1`, absorbedID)
	if err != nil {
		return fmt.Errorf("postgres: edges of absorbed: %w", err)
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
		if err := rows.Scan(&m.id, &m.src, &m.tgt, &m.relType, &m.directed); err != nil {
			rows.Close()
			return err
		}
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
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = $1`, m.id); err != nil {
				return fmt.Errorf("postgres: drop self-loop %s: %w", m.id, err)
			}
			continue
		}
		if !m.directed && src > tgt {
			src, tgt = tgt, src
		}

		var existingID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM edges WHERE source_id = $1 AND target_id = $2 AND type = $3 AND id != $4`,
			src, tgt, m.relType, m.id).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `
				UPDATE edges SET source_id = $1, target_id = $2, updated_at = $3 WHERE id = $4`,
				src, tgt, now, m.id); err != nil {
				return fmt.Errorf("postgres: re-point edge %s: %w", m.id, err)
			}
			touched[m.id] = true
		case err != nil:
			return fmt.Errorf("postgres: collision lookup for edge %s: %w", m.id, err)
		default:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO edge_evidence (edge_id, document_id, start_offset, end_offset, confidence)
				SELECT $1, document_id, start_offset, end_offset, confidence
				FROM edge_evidence WHERE edge_id = $2
				ON CONFLICT DO NOTHING`, existingID, m.id); err != nil {
				return fmt.Errorf("postgres: fold evidence of %s into %s: %w", m.id, existingID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = $1`, m.id); err != nil {
				return fmt.Errorf("postgres: drop merged edge %s: %w", m.id, err)
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
	var gaps []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT status, reason, extractor_gaps, summary FROM document_status WHERE document_id = $1`,
		documentID).Scan(&st.Status, &st.Reason, &gaps, &st.Summary)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: status of %s: %w", documentID, err)
	}
	if err := json.Unmarshal(gaps, &st.ExtractorGaps); err != nil {
		return nil, fmt.Errorf("postgres: decode gaps for %s: %w", documentID, err)
	}
	return st, nil
}

// SetDocumentStatus records a document's processing state.
func (s *GraphStore) SetDocumentStatus(ctx context.Context, status types.DocumentStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin status update: %w", err)
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			extractor_gaps = EXCLUDED.extractor_gaps,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at`,
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
		return nil, fmt.Errorf("postgres: list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*types.DocumentStatus
	for rows.Next() {
		st := &types.DocumentStatus{}
		var gaps []byte
		if err := rows.Scan(&st.DocumentID, &st.Status, &st.Reason, &gaps, &st.Summary); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(gaps, &st.ExtractorGaps); err != nil {
			return nil, fmt.Errorf("postgres: decode gaps for %s: %w", st.DocumentID, err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
