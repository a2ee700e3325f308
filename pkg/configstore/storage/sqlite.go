package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/ganymede/pkg/configstore"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" keeps the whole store in
	// a single persistent connection for the process lifetime (the pool is
	// pinned to one connection either way).
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/ganymede.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage implements configstore.Storage using SQLite. The connection
// pool is pinned to a single connection: SQLite supports one writer, and the
// store serializes transactions anyway, so one connection is both the
// simplest and the correct shape. WAL mode keeps the file readable by
// external tooling while a transaction is open.
type SQLiteStorage struct {
	db        *sql.DB
	config    *SQLiteConfig
	mu        sync.Mutex
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteStorage creates a new SQLite storage backend, creating the schema
// if needed.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, configstore.NewStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "configstore.storage.sqlite")

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "open", err)
	}

	// Single exclusive writer; also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized", "path", config.Path)
	return s, nil
}

// initialize creates the schema and verifies the schema version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return configstore.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return configstore.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return configstore.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return configstore.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// WithTx runs fn inside one exclusive transaction. The internal mutex is
// held for the whole transaction; the rollback runs on error and on panic.
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(tx configstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return configstore.NewStorageError("sqlite", "begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return configstore.NewStorageError("sqlite", "commit", err)
	}
	committed = true
	return nil
}

// Close releases the database handle. Close is idempotent.
func (s *SQLiteStorage) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})
	return closeErr
}

// sqliteTx implements configstore.Tx over one open transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) EnsureKey(projectID, key, keyType string, source json.RawMessage) (int64, error) {
	now := time.Now().Unix()

	var (
		id        int64
		curType   sql.NullString
		curSource sql.NullString
	)
	err := t.tx.QueryRow(
		`SELECT id, type, source FROM config_keys WHERE project_id = ? AND key = ?`,
		projectID, key,
	).Scan(&id, &curType, &curSource)
	if err == sql.ErrNoRows {
		res, err := t.tx.Exec(
			`INSERT INTO config_keys (project_id, key, type, source, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, key, nullIfEmpty(keyType), nullIfEmpty(string(source)), now, now,
		)
		if err != nil {
			return 0, configstore.NewStorageError("sqlite", "ensure_key", err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return 0, configstore.NewStorageError("sqlite", "ensure_key", err)
		}
		return newID, nil
	}
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "ensure_key", err)
	}

	// First writer wins for metadata; timestamps always advance.
	mergedType := curType.String
	if mergedType == "" {
		mergedType = keyType
	}
	mergedSource := curSource.String
	if mergedSource == "" {
		mergedSource = string(source)
	}
	_, err = t.tx.Exec(
		`UPDATE config_keys SET type = ?, source = ?, updated_at = ? WHERE id = ?`,
		nullIfEmpty(mergedType), nullIfEmpty(mergedSource), now, id,
	)
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "ensure_key", err)
	}
	return id, nil
}

func (t *sqliteTx) GetKey(projectID, key string) (*configstore.KeyRecord, error) {
	rec, err := t.scanKey(t.tx.QueryRow(
		`SELECT id, project_id, key, type, source, created_at, updated_at
		 FROM config_keys WHERE project_id = ? AND key = ?`,
		projectID, key,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "get_key", err)
	}
	return rec, nil
}

func (t *sqliteTx) ListKeys(projectID string) ([]*configstore.KeyRecord, error) {
	rows, err := t.tx.Query(
		`SELECT id, project_id, key, type, source, created_at, updated_at
		 FROM config_keys WHERE project_id = ? ORDER BY id`,
		projectID,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_keys", err)
	}
	defer rows.Close()

	var out []*configstore.KeyRecord
	for rows.Next() {
		rec, err := t.scanKey(rows)
		if err != nil {
			return nil, configstore.NewStorageError("sqlite", "list_keys", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_keys", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (t *sqliteTx) scanKey(row scanner) (*configstore.KeyRecord, error) {
	var (
		rec                  configstore.KeyRecord
		keyType, source      sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Key, &keyType, &source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Type = keyType.String
	if source.Valid && source.String != "" {
		rec.Source = json.RawMessage(source.String)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func (t *sqliteTx) AppendValue(projectID string, keyID int64, value json.RawMessage, createdBy string) (int64, error) {
	res, err := t.tx.Exec(
		`INSERT INTO config_values (project_id, key_id, value, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		projectID, keyID, string(value), time.Now().Unix(), nullIfEmpty(createdBy),
	)
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "append_value", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "append_value", err)
	}
	return id, nil
}

func (t *sqliteTx) GetValue(valueID int64) (*configstore.ValueRecord, error) {
	rec, err := t.scanValue(t.tx.QueryRow(
		`SELECT id, project_id, key_id, value, created_at, created_by
		 FROM config_values WHERE id = ?`,
		valueID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "get_value", err)
	}
	return rec, nil
}

func (t *sqliteTx) ValueHistory(projectID string, keyID int64) ([]*configstore.ValueRecord, error) {
	rows, err := t.tx.Query(
		`SELECT id, project_id, key_id, value, created_at, created_by
		 FROM config_values WHERE project_id = ? AND key_id = ? ORDER BY id`,
		projectID, keyID,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "value_history", err)
	}
	defer rows.Close()

	var out []*configstore.ValueRecord
	for rows.Next() {
		rec, err := t.scanValue(rows)
		if err != nil {
			return nil, configstore.NewStorageError("sqlite", "value_history", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "value_history", err)
	}
	return out, nil
}

func (t *sqliteTx) scanValue(row scanner) (*configstore.ValueRecord, error) {
	var (
		rec       configstore.ValueRecord
		value     string
		createdBy sql.NullString
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.KeyID, &value, &createdAt, &createdBy); err != nil {
		return nil, err
	}
	rec.Value = json.RawMessage(value)
	rec.CreatedBy = createdBy.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

func (t *sqliteTx) SetPublished(projectID, env string, keyID, valueID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO config_published (project_id, env, key_id, value_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, env, key_id) DO UPDATE SET
		     value_id = excluded.value_id,
		     updated_at = excluded.updated_at`,
		projectID, env, keyID, valueID, time.Now().Unix(),
	)
	if err != nil {
		return configstore.NewStorageError("sqlite", "set_published", err)
	}
	return nil
}

func (t *sqliteTx) GetPublished(projectID, env string, keyID int64) (int64, bool, error) {
	var valueID int64
	err := t.tx.QueryRow(
		`SELECT value_id FROM config_published WHERE project_id = ? AND env = ? AND key_id = ?`,
		projectID, env, keyID,
	).Scan(&valueID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, configstore.NewStorageError("sqlite", "get_published", err)
	}
	return valueID, true, nil
}

func (t *sqliteTx) ListPublished(projectID, env string) ([]*configstore.PublishedEntry, error) {
	rows, err := t.tx.Query(
		`SELECT p.project_id, p.env, k.key, p.key_id, p.value_id, v.value, p.updated_at
		 FROM config_published p
		 JOIN config_keys k ON k.id = p.key_id
		 JOIN config_values v ON v.id = p.value_id
		 WHERE p.project_id = ? AND p.env = ?
		 ORDER BY k.key`,
		projectID, env,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_published", err)
	}
	defer rows.Close()

	var out []*configstore.PublishedEntry
	for rows.Next() {
		var (
			entry     configstore.PublishedEntry
			value     string
			updatedAt int64
		)
		if err := rows.Scan(&entry.ProjectID, &entry.Env, &entry.Key, &entry.KeyID,
			&entry.ValueID, &value, &updatedAt); err != nil {
			return nil, configstore.NewStorageError("sqlite", "list_published", err)
		}
		entry.Value = json.RawMessage(value)
		entry.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_published", err)
	}
	return out, nil
}

func (t *sqliteTx) UpsertMask(rec *configstore.MaskRecord) error {
	now := time.Now()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var distribution any
	if rec.Distribution != nil {
		data, err := json.Marshal(rec.Distribution)
		if err != nil {
			return configstore.NewStorageError("sqlite", "upsert_mask", err)
		}
		distribution = string(data)
	}

	_, err := t.tx.Exec(
		`INSERT INTO masks (project_id, env, mask_id, name, experiment_type, salt, distribution, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, env, mask_id) DO UPDATE SET
		     name = excluded.name,
		     experiment_type = excluded.experiment_type,
		     salt = excluded.salt,
		     distribution = excluded.distribution,
		     updated_at = excluded.updated_at`,
		rec.ProjectID, rec.Env, rec.MaskID, rec.Name, string(rec.ExperimentType),
		rec.Salt, distribution, createdAt.Unix(), now.Unix(),
	)
	if err != nil {
		return configstore.NewStorageError("sqlite", "upsert_mask", err)
	}
	return nil
}

func (t *sqliteTx) GetMask(projectID, env, maskID string) (*configstore.MaskRecord, error) {
	rec, err := t.scanMask(t.tx.QueryRow(
		`SELECT id, project_id, env, mask_id, name, experiment_type, salt, distribution, created_at, updated_at
		 FROM masks WHERE project_id = ? AND env = ? AND mask_id = ?`,
		projectID, env, maskID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "get_mask", err)
	}
	return rec, nil
}

func (t *sqliteTx) ListMasks(projectID, env string) ([]*configstore.MaskRecord, error) {
	rows, err := t.tx.Query(
		`SELECT id, project_id, env, mask_id, name, experiment_type, salt, distribution, created_at, updated_at
		 FROM masks WHERE project_id = ? AND env = ? ORDER BY mask_id`,
		projectID, env,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_masks", err)
	}
	defer rows.Close()

	var out []*configstore.MaskRecord
	for rows.Next() {
		rec, err := t.scanMask(rows)
		if err != nil {
			return nil, configstore.NewStorageError("sqlite", "list_masks", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_masks", err)
	}
	return out, nil
}

func (t *sqliteTx) scanMask(row scanner) (*configstore.MaskRecord, error) {
	var (
		rec                  configstore.MaskRecord
		expType              string
		distribution         sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Env, &rec.MaskID, &rec.Name,
		&expType, &rec.Salt, &distribution, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.ExperimentType = configstore.ExperimentType(expType)
	if distribution.Valid && distribution.String != "" {
		if err := json.Unmarshal([]byte(distribution.String), &rec.Distribution); err != nil {
			return nil, err
		}
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func (t *sqliteTx) SetOverride(projectID, env, maskID, variant string, keyID, valueID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO mask_overrides (project_id, env, mask_id, variant, key_id, value_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, env, mask_id, variant, key_id) DO UPDATE SET
		     value_id = excluded.value_id,
		     updated_at = excluded.updated_at`,
		projectID, env, maskID, variant, keyID, valueID, time.Now().Unix(),
	)
	if err != nil {
		return configstore.NewStorageError("sqlite", "set_override", err)
	}
	return nil
}

func (t *sqliteTx) GetOverride(projectID, env, maskID, variant string, keyID int64) (int64, bool, error) {
	var valueID int64
	err := t.tx.QueryRow(
		`SELECT value_id FROM mask_overrides
		 WHERE project_id = ? AND env = ? AND mask_id = ? AND variant = ? AND key_id = ?`,
		projectID, env, maskID, variant, keyID,
	).Scan(&valueID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, configstore.NewStorageError("sqlite", "get_override", err)
	}
	return valueID, true, nil
}

func (t *sqliteTx) ListOverrides(projectID, env, maskID string) ([]*configstore.OverrideEntry, error) {
	rows, err := t.tx.Query(
		`SELECT o.project_id, o.env, o.mask_id, o.variant, k.key, o.key_id, o.value_id, v.value, o.updated_at
		 FROM mask_overrides o
		 JOIN config_keys k ON k.id = o.key_id
		 JOIN config_values v ON v.id = o.value_id
		 WHERE o.project_id = ? AND o.env = ? AND o.mask_id = ?
		 ORDER BY o.variant, k.key`,
		projectID, env, maskID,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_overrides", err)
	}
	defer rows.Close()

	var out []*configstore.OverrideEntry
	for rows.Next() {
		var (
			entry     configstore.OverrideEntry
			value     string
			updatedAt int64
		)
		if err := rows.Scan(&entry.ProjectID, &entry.Env, &entry.MaskID, &entry.Variant,
			&entry.Key, &entry.KeyID, &entry.ValueID, &value, &updatedAt); err != nil {
			return nil, configstore.NewStorageError("sqlite", "list_overrides", err)
		}
		entry.Value = json.RawMessage(value)
		entry.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_overrides", err)
	}
	return out, nil
}

func (t *sqliteTx) UpsertPromptMapping(rec *configstore.PromptMappingRecord) error {
	now := time.Now()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := t.tx.Exec(
		`INSERT INTO prompt_mappings
		     (project_id, config_key, prompt_name, external_prompt_id, latest_commit, latest_external_version_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, prompt_name) DO UPDATE SET
		     config_key = excluded.config_key,
		     external_prompt_id = excluded.external_prompt_id,
		     latest_commit = excluded.latest_commit,
		     latest_external_version_id = excluded.latest_external_version_id,
		     updated_at = excluded.updated_at`,
		rec.ProjectID, rec.ConfigKey, rec.PromptName, nullIfEmpty(rec.ExternalPromptID),
		nullIfEmpty(rec.LatestCommit), nullIfEmpty(rec.LatestExternalVersionID),
		createdAt.Unix(), now.Unix(),
	)
	if err != nil {
		return configstore.NewStorageError("sqlite", "upsert_prompt_mapping", err)
	}
	return nil
}

func (t *sqliteTx) GetPromptMapping(projectID, promptName string) (*configstore.PromptMappingRecord, error) {
	rec, err := t.scanPromptMapping(t.tx.QueryRow(
		`SELECT project_id, config_key, prompt_name, external_prompt_id, latest_commit, latest_external_version_id, created_at, updated_at
		 FROM prompt_mappings WHERE project_id = ? AND prompt_name = ?`,
		projectID, promptName,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "get_prompt_mapping", err)
	}
	return rec, nil
}

func (t *sqliteTx) ListPromptMappings(projectID string) ([]*configstore.PromptMappingRecord, error) {
	rows, err := t.tx.Query(
		`SELECT project_id, config_key, prompt_name, external_prompt_id, latest_commit, latest_external_version_id, created_at, updated_at
		 FROM prompt_mappings WHERE project_id = ? ORDER BY prompt_name`,
		projectID,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_prompt_mappings", err)
	}
	defer rows.Close()

	var out []*configstore.PromptMappingRecord
	for rows.Next() {
		rec, err := t.scanPromptMapping(rows)
		if err != nil {
			return nil, configstore.NewStorageError("sqlite", "list_prompt_mappings", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "list_prompt_mappings", err)
	}
	return out, nil
}

func (t *sqliteTx) scanPromptMapping(row scanner) (*configstore.PromptMappingRecord, error) {
	var (
		rec                           configstore.PromptMappingRecord
		externalID, commit, versionID sql.NullString
		createdAt, updatedAt          int64
	)
	if err := row.Scan(&rec.ProjectID, &rec.ConfigKey, &rec.PromptName,
		&externalID, &commit, &versionID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.ExternalPromptID = externalID.String
	rec.LatestCommit = commit.String
	rec.LatestExternalVersionID = versionID.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func (t *sqliteTx) UnreferencedValueIDs(olderThan time.Time, keepLast int) ([]int64, error) {
	rows, err := t.tx.Query(
		`SELECT v.id FROM config_values v
		 WHERE v.created_at < ?
		   AND NOT EXISTS (SELECT 1 FROM config_published p WHERE p.value_id = v.id)
		   AND NOT EXISTS (SELECT 1 FROM mask_overrides o WHERE o.value_id = v.id)
		   AND v.id NOT IN (
		       SELECT v2.id FROM config_values v2
		       WHERE v2.key_id = v.key_id ORDER BY v2.id DESC LIMIT ?
		   )
		 ORDER BY v.id`,
		olderThan.Unix(), keepLast,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "unreferenced_value_ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, configstore.NewStorageError("sqlite", "unreferenced_value_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "unreferenced_value_ids", err)
	}
	return ids, nil
}

func (t *sqliteTx) ValuesByID(ids []int64) ([]*configstore.ValueRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := t.tx.Query(
		`SELECT id, project_id, key_id, value, created_at, created_by
		 FROM config_values WHERE id IN (`+placeholders+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, configstore.NewStorageError("sqlite", "values_by_id", err)
	}
	defer rows.Close()

	var out []*configstore.ValueRecord
	for rows.Next() {
		rec, err := t.scanValue(rows)
		if err != nil {
			return nil, configstore.NewStorageError("sqlite", "values_by_id", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, configstore.NewStorageError("sqlite", "values_by_id", err)
	}
	return out, nil
}

func (t *sqliteTx) DeleteValues(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(ids)
	res, err := t.tx.Exec(`DELETE FROM config_values WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "delete_values", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "delete_values", err)
	}
	return deleted, nil
}

func (t *sqliteTx) CountValues(projectID string) (int64, error) {
	var count int64
	err := t.tx.QueryRow(
		`SELECT COUNT(*) FROM config_values WHERE project_id = ?`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, configstore.NewStorageError("sqlite", "count_values", err)
	}
	return count, nil
}

// nullIfEmpty maps "" to SQL NULL so empty metadata stays mergeable.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// inClause builds "?, ?, ?" and the matching argument slice for an IN query.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
