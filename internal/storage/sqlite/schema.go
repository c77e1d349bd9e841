package sqlite

// Schema contains the SQL statements to create the graph schema for SQLite.
// Uniqueness constraints on mentions and edge evidence are what make
// document commits idempotent: a re-ingest inserts nothing new.
const Schema = `
-- Documents: canonical text stream plus page layout for offset mapping
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    checksum TEXT NOT NULL,
    pages TEXT NOT NULL DEFAULT '[]',
    ingested_at TIMESTAMP NOT NULL
);

-- Document status: pipeline progress, queryable without touching the graph
CREATE TABLE IF NOT EXISTS document_status (
    document_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    extractor_gaps TEXT NOT NULL DEFAULT '[]',
    summary TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL
);

-- Entities: canonical cross-document identities
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);

-- Aliases: literals an entity has been seen as, beyond its canonical name
CREATE TABLE IF NOT EXISTS entity_aliases (
    entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    alias TEXT NOT NULL,
    PRIMARY KEY (entity_id, alias)
);

-- Mentions: one row per merged mention, keyed by source span so a
-- re-ingested document cannot attach the same mention twice
CREATE TABLE IF NOT EXISTS mentions (
    entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    document_id TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    type TEXT NOT NULL,
    text TEXT NOT NULL,
    confidence REAL NOT NULL,
    UNIQUE (document_id, start_offset, end_offset, type)
);

CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions(entity_id);
CREATE INDEX IF NOT EXISTS idx_mentions_document ON mentions(document_id);

-- Edges: one row per (source, target, type); undirected edges store the
-- endpoint pair in canonical order. Confidence is derived from evidence.
CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    target_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    directed INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL,
    flagged INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (source_id, target_id, type)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

-- Edge evidence: the spans that justify an edge, with the confidence each
-- contributed. Primary key makes re-submitting evidence a no-op.
CREATE TABLE IF NOT EXISTS edge_evidence (
    edge_id TEXT NOT NULL REFERENCES edges(id) ON DELETE CASCADE,
    document_id TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    confidence REAL NOT NULL,
    PRIMARY KEY (edge_id, document_id, start_offset, end_offset)
);

-- Merge audit: the only record of an absorbed entity after a merge
CREATE TABLE IF NOT EXISTS entity_merges (
    id TEXT PRIMARY KEY,
    surviving_id TEXT NOT NULL,
    absorbed_id TEXT NOT NULL,
    absorbed_name TEXT NOT NULL,
    actor TEXT NOT NULL,
    merged_at TIMESTAMP NOT NULL
);
`
