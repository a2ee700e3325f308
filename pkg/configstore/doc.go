// Package configstore provides the experiment-aware configuration
// resolution store for Mercator Ganymede: versioned configuration values,
// environment-scoped publication pointers, and deterministic A/B variant
// assignment over an append-only data model.
//
// # Data model
//
// The store manages six entity kinds:
//
//  1. Config keys - registered key names per project, never deleted
//  2. Value ledger - append-only, immutable value history per key
//  3. Published pointers - the value currently live per (project, env, key)
//  4. Masks - named experiments with a deterministic assignment policy
//  5. Override pointers - per (mask, variant, key) values that take
//     precedence over publications during resolution
//  6. Prompt mappings - linkage to an external prompt-versioning identity
//
// Values are never updated in place: every publish or override write appends
// a new ledger row and repoints the relevant pointer. Rollback is re-pointing
// at an older value id; the ledger is the audit trail.
//
// # Resolution
//
// Resolve is the single hot read path:
//
//	result, err := store.Resolve(ctx, "p1", "prod",
//	    []string{"Service.timeout", "Service.prompt"},
//	    "exp1",      // mask id, "" for no experiment context
//	    "user-123",  // unit id for bucketing, "" for the coarse fallback
//	)
//
// When a mask id is given and the mask is an A/B experiment, the caller is
// bucketed deterministically: sha256(mask:salt:unit) mod 10000 walked against
// the declared variant weights. The same (mask, salt, unit) triple always
// yields the same variant, which is what makes assignment sticky across
// calls. Per key, an override for the assigned variant beats the published
// pointer; absence of either puts the key in MissingKeys. Resolution never
// returns an error for absent keys or unknown masks.
//
// # Basic usage
//
//	backend, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path: "data/ganymede.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := configstore.New(backend, nil)
//	defer store.Close()
//
//	store.RegisterKeys(ctx, "p1", "prod", []configstore.KeySpec{
//	    {Key: "Service.timeout", Type: "int", DefaultValue: json.RawMessage(`30`)},
//	})
//	store.PublishValue(ctx, "p1", "prod", "Service.timeout", 45, "deploy-bot")
//
//	store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
//	    ExperimentType: configstore.ExperimentAB,
//	    Distribution:   configstore.Distribution{{Variant: "A", Weight: 50}, {Variant: "B", Weight: 50}},
//	})
//	store.SetMaskOverride(ctx, "p1", "prod", "exp1", "B", "Service.timeout", 60, "")
//
// # Concurrency
//
// The store serializes every operation behind one internal mutex, and each
// operation runs as one atomic transaction in the backend. This trades read
// concurrency for correctness-by-construction; the store targets embedded,
// single-process deployments. No cancellation, timeout, or retry semantics
// exist internally - operations run to completion or return the failure.
//
// # Storage backends
//
// Backends implement the Storage/Tx interfaces of this package:
//   - storage.SQLiteStorage - durable, WAL-mode SQLite (production)
//   - storage.MemoryStorage - in-memory with real rollback (tests)
package configstore
