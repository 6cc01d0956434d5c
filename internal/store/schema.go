package store

// Schema creates every persistence table. Identities mirror the in-memory
// types: servers by name, operations unique per (server, name), edges unique
// per compound operation key, translation specs one per edge, runs by their
// generated ID. Upserts are the only write path, so the statements are all
// IF NOT EXISTS and the schema is applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS servers (
    name          TEXT PRIMARY KEY,
    command       TEXT NOT NULL DEFAULT '',
    args          TEXT NOT NULL DEFAULT '[]',
    env           TEXT,
    transport     TEXT NOT NULL DEFAULT 'stdio',
    url           TEXT,
    status        TEXT NOT NULL DEFAULT 'registered',
    registered_at TEXT NOT NULL,
    updated_at    TEXT
);

CREATE TABLE IF NOT EXISTS operations (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    server_name   TEXT NOT NULL REFERENCES servers(name) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    description   TEXT DEFAULT '',
    input_schema  TEXT,
    output_schema TEXT,
    UNIQUE(server_name, name)
);

CREATE TABLE IF NOT EXISTS semantic_profiles (
    server_name            TEXT PRIMARY KEY REFERENCES servers(name) ON DELETE CASCADE,
    plain_language_summary TEXT DEFAULT '',
    capability_tags        TEXT DEFAULT '[]',
    input_concepts         TEXT DEFAULT '[]',
    output_concepts        TEXT DEFAULT '[]',
    use_cases              TEXT DEFAULT '[]',
    compatible_with        TEXT DEFAULT '[]',
    domain                 TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS edges (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    source_server      TEXT NOT NULL REFERENCES servers(name) ON DELETE CASCADE,
    source_operation   TEXT NOT NULL,
    target_server      TEXT NOT NULL REFERENCES servers(name) ON DELETE CASCADE,
    target_operation   TEXT NOT NULL,
    compatibility_type TEXT NOT NULL,
    confidence         REAL NOT NULL DEFAULT 0.0,
    translation_hint   TEXT DEFAULT '',
    created_at         TEXT NOT NULL,
    UNIQUE(source_server, source_operation, target_server, target_operation)
);

CREATE TABLE IF NOT EXISTS translation_specs (
    edge_id    INTEGER PRIMARY KEY REFERENCES edges(id) ON DELETE CASCADE,
    spec       TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    id             TEXT PRIMARY KEY,
    request        TEXT NOT NULL,
    pipeline_steps TEXT NOT NULL,
    context        TEXT,
    status         TEXT NOT NULL DEFAULT 'pending',
    started_at     TEXT,
    completed_at   TEXT,
    total_duration REAL,
    result         TEXT
);

CREATE INDEX IF NOT EXISTS idx_operations_server ON operations(server_name);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_server, source_operation);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_server, target_operation);
CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
`
