package config

import "time"

// Config is the root configuration structure for Mercator Ganymede. It
// covers the storage backend, history retention, seed-file loading, and
// metrics settings for the embedded configuration store.
type Config struct {
	// Store contains storage backend configuration.
	Store StoreConfig `yaml:"store"`

	// Retention contains value-history retention configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Seed contains declarative key-seed file configuration.
	Seed SeedConfig `yaml:"seed"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig contains configuration for the storage backend.
type StoreConfig struct {
	// Backend selects the storage backend: "durable" (SQLite file) or
	// "memory" (in-process maps, no persistence).
	// Default: "durable"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path. Only used by the durable
	// backend. ":memory:" keeps an ephemeral SQLite store on a single
	// persistent connection.
	// Default: "data/ganymede.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for the database lock before
	// failing. Only used by the durable backend.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Env is the default environment for writes that do not scope one
	// explicitly.
	// Default: "prod"
	Env string `yaml:"env"`
}

// RetentionConfig contains configuration for value-history retention.
// Retention is disabled by default: the ledger is append-only and history
// grows without bound unless pruning is opted into explicitly.
type RetentionConfig struct {
	// Enabled turns on history pruning.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RetentionDays is the minimum age in days before an unreferenced
	// value row becomes prunable. 0 disables age-based pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// KeepLast is the number of most recent value rows per key that are
	// never pruned, regardless of age.
	// Default: 5
	KeepLast int `yaml:"keep_last"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete enables archiving pruned rows before deletion.
	// Default: true
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archive databases.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// SeedConfig contains configuration for declarative key seeding.
type SeedConfig struct {
	// Path is the YAML seed file to apply at startup. Empty disables
	// seeding.
	Path string `yaml:"path"`

	// Watch re-applies the seed file whenever it changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is how long to coalesce file events before
	// re-applying the seed file.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on metrics collection.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "ganymede"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "configstore"
	Subsystem string `yaml:"subsystem"`
}

// Backend names recognized by StoreConfig.Backend.
const (
	BackendDurable = "durable"
	BackendMemory  = "memory"
)
