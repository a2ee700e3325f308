package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/ganymede/pkg/configstore"
	"mercator-hq/ganymede/pkg/configstore/export"
)

// Config contains configuration for the history pruner.
type Config struct {
	// RetentionDays is the minimum age in days before an unreferenced
	// value row becomes prunable. 0 means keep history forever.
	RetentionDays int

	// KeepLast is the number of most recent value rows per key that are
	// never pruned, regardless of age.
	KeepLast int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM).
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving value rows before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory to store archive databases.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		KeepLast:            5,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: true,
		ArchivePath:         "data/archives/",
	}
}

// Pruner enforces the history retention policy on the value ledger.
//
// The ledger is append-only by design; the pruner is the one explicit,
// opt-in exception. It only ever deletes rows that are older than the
// retention period, not referenced by any published or override pointer,
// and not among the KeepLast most recent rows of their key. Pointer targets
// are therefore always resolvable, pruning or not.
type Pruner struct {
	storage   configstore.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new history pruner.
func NewPruner(storage configstore.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "configstore.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)
	return pruner
}

// Start begins scheduled pruning. See Scheduler.Start.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// Prune runs one pruning cycle and returns the number of value rows
// deleted. With archiving enabled, the doomed rows are written to a fresh
// archive database first; an archive failure aborts the cycle before
// anything is deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention period not configured, skipping prune")
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	// Collect candidates and their content in one transaction.
	var (
		candidates []int64
		records    []*configstore.ValueRecord
	)
	err := p.storage.WithTx(ctx, func(tx configstore.Tx) error {
		var err error
		candidates, err = tx.UnreferencedValueIDs(cutoff, p.config.KeepLast)
		if err != nil {
			return err
		}
		if p.config.ArchiveBeforeDelete {
			records, err = tx.ValuesByID(candidates)
		}
		return err
	})
	if err != nil {
		return 0, configstore.NewRetentionError(p.config.RetentionDays, err)
	}
	if len(candidates) == 0 {
		p.logger.Debug("no prunable history", "retention_days", p.config.RetentionDays)
		return 0, nil
	}

	if p.config.ArchiveBeforeDelete {
		snapshotID, err := p.archive(ctx, records)
		if err != nil {
			return 0, configstore.NewRetentionError(p.config.RetentionDays, err)
		}
		p.logger.Info("archived history before deletion",
			"snapshot_id", snapshotID,
			"record_count", len(records),
		)
	}

	// Delete in a second transaction, re-checking referencedness: a value
	// re-pointed at between the two transactions must survive.
	var deleted int64
	err = p.storage.WithTx(ctx, func(tx configstore.Tx) error {
		still, err := tx.UnreferencedValueIDs(cutoff, p.config.KeepLast)
		if err != nil {
			return err
		}
		deleted, err = tx.DeleteValues(intersect(candidates, still))
		return err
	})
	if err != nil {
		return 0, configstore.NewRetentionError(p.config.RetentionDays, err)
	}

	p.logger.Info("history pruning completed",
		"deleted_count", deleted,
		"retention_days", p.config.RetentionDays,
		"keep_last", p.config.KeepLast,
	)
	return deleted, nil
}

// archive writes the records into a timestamped archive database and
// returns the snapshot id.
func (p *Pruner) archive(ctx context.Context, records []*configstore.ValueRecord) (string, error) {
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	path := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("values-%s.db", time.Now().UTC().Format("20060102-150405")))
	archiver, err := export.NewSQLiteArchiver(path)
	if err != nil {
		return "", err
	}
	defer archiver.Close()

	return archiver.Archive(ctx, records)
}

// intersect returns the ids present in both sorted slices.
func intersect(a, b []int64) []int64 {
	inB := make(map[int64]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []int64
	for _, id := range a {
		if inB[id] {
			out = append(out, id)
		}
	}
	return out
}
