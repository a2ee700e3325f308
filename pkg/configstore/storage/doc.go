// Package storage provides persistence backends for the configuration
// store, implementing the configstore.Storage and configstore.Tx interfaces.
//
// Two backends ship with the store:
//
//   - SQLiteStorage: durable, WAL-mode SQLite on a single pinned connection.
//     The production backend; ":memory:" paths are supported for ephemeral
//     stores that still want SQL semantics.
//   - MemoryStorage: plain in-memory maps with copy-on-write transactions.
//     The test backend; rollback semantics match SQLite exactly.
//
// Both backends admit one transaction at a time, commit on a nil return from
// the transaction function, and roll back on error or panic. Lookup
// primitives report absence structurally (nil or a false second return),
// never as an error; errors are reserved for storage failures.
package storage
