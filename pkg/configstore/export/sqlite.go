package export

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/configstore"
)

// archiveSchema is the schema of an archive database. Archived rows keep
// their original ledger ids so a pruned value remains traceable.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS archive_snapshots (
    snapshot_id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    record_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS archived_values (
    snapshot_id TEXT NOT NULL REFERENCES archive_snapshots(snapshot_id),
    value_id INTEGER NOT NULL,
    project_id TEXT NOT NULL,
    key_id INTEGER NOT NULL,
    value TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    created_by TEXT,
    PRIMARY KEY (snapshot_id, value_id)
);
`

// SQLiteArchiver writes value-history records into a standalone SQLite
// archive database, separate from the live store.
type SQLiteArchiver struct {
	db   *sql.DB
	path string
}

// NewSQLiteArchiver opens (or creates) an archive database at path.
func NewSQLiteArchiver(path string) (*SQLiteArchiver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, configstore.NewExportError("sqlite", 0, err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, configstore.NewExportError("sqlite", 0, err)
	}
	return &SQLiteArchiver{db: db, path: path}, nil
}

// Archive writes the records in one transaction under a fresh snapshot id
// and returns the snapshot id.
func (a *SQLiteArchiver) Archive(ctx context.Context, records []*configstore.ValueRecord) (string, error) {
	snapshotID := uuid.New().String()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", configstore.NewExportError("sqlite", len(records), err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(
		`INSERT INTO archive_snapshots (snapshot_id, created_at, record_count) VALUES (?, ?, ?)`,
		snapshotID, time.Now().UTC(), len(records),
	); err != nil {
		return "", configstore.NewExportError("sqlite", len(records), err)
	}

	for _, rec := range records {
		if _, err := tx.Exec(
			`INSERT INTO archived_values (snapshot_id, value_id, project_id, key_id, value, created_at, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snapshotID, rec.ID, rec.ProjectID, rec.KeyID, string(rec.Value),
			rec.CreatedAt.Unix(), rec.CreatedBy,
		); err != nil {
			return "", configstore.NewExportError("sqlite", len(records), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", configstore.NewExportError("sqlite", len(records), err)
	}
	committed = true
	return snapshotID, nil
}

// Close releases the archive database handle.
func (a *SQLiteArchiver) Close() error {
	return a.db.Close()
}
