// Package retention provides opt-in pruning for the append-only value
// ledger.
//
// The store keeps value history forever by default. For deployments where
// unbounded growth is not acceptable, the Pruner deletes rows that are older
// than a retention period, unreferenced by any live pointer, and outside the
// per-key keep-last window - optionally archiving them into a standalone
// SQLite database first. A cron Scheduler runs pruning cycles unattended.
//
//	pruner := retention.NewPruner(backend, &retention.Config{
//	    RetentionDays:       90,
//	    KeepLast:            5,
//	    PruneSchedule:       "0 3 * * *",
//	    ArchiveBeforeDelete: true,
//	    ArchivePath:         "data/archives/",
//	})
//	pruner.Start(ctx)
//	defer pruner.Stop()
//
// Values referenced by a published or override pointer are never deleted, so
// resolution is unaffected by pruning.
package retention
