package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the configuration store
// schema. The value ledger is append-only; pointer tables are keyed by their
// full tuple and updated in place.
const Schema = `
-- Registered configuration keys
CREATE TABLE IF NOT EXISTS config_keys (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    key TEXT NOT NULL,
    type TEXT,
    source TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (project_id, key)
);

-- Append-only value ledger
CREATE TABLE IF NOT EXISTS config_values (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    key_id INTEGER NOT NULL REFERENCES config_keys(id),
    value TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    created_by TEXT
);

-- Live publication pointer per (project, env, key)
CREATE TABLE IF NOT EXISTS config_published (
    project_id TEXT NOT NULL,
    env TEXT NOT NULL,
    key_id INTEGER NOT NULL REFERENCES config_keys(id),
    value_id INTEGER NOT NULL REFERENCES config_values(id),
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (project_id, env, key_id)
);

-- Experiment registry
CREATE TABLE IF NOT EXISTS masks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    env TEXT NOT NULL,
    mask_id TEXT NOT NULL,
    name TEXT NOT NULL,
    experiment_type TEXT NOT NULL,
    salt TEXT NOT NULL,
    distribution TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (project_id, env, mask_id)
);

-- Override pointer per (project, env, mask, variant, key)
CREATE TABLE IF NOT EXISTS mask_overrides (
    project_id TEXT NOT NULL,
    env TEXT NOT NULL,
    mask_id TEXT NOT NULL,
    variant TEXT NOT NULL,
    key_id INTEGER NOT NULL REFERENCES config_keys(id),
    value_id INTEGER NOT NULL REFERENCES config_values(id),
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (project_id, env, mask_id, variant, key_id)
);

-- External prompt-version identity per (project, prompt name)
CREATE TABLE IF NOT EXISTS prompt_mappings (
    project_id TEXT NOT NULL,
    config_key TEXT NOT NULL,
    prompt_name TEXT NOT NULL,
    external_prompt_id TEXT,
    latest_commit TEXT,
    latest_external_version_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (project_id, prompt_name)
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_config_values_key ON config_values(key_id);
CREATE INDEX IF NOT EXISTS idx_config_values_created_at ON config_values(created_at);
CREATE INDEX IF NOT EXISTS idx_config_published_value ON config_published(value_id);
CREATE INDEX IF NOT EXISTS idx_mask_overrides_value ON mask_overrides(value_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
