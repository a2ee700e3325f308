// Package seed provides declarative key registration from YAML files.
//
// A seed file lists the configuration keys a project expects, with optional
// type hints, default values, and source metadata. Applying a seed file maps
// onto Store.RegisterKeys: registration is idempotent and defaults never
// overwrite an existing publication, so seed files can be applied at every
// startup and re-applied on change without risk.
//
// The Watcher re-applies the seed file whenever it changes on disk, using
// fsnotify with debouncing to absorb editor save bursts.
package seed
