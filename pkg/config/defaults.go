package config

import "time"

// ApplyDefaults fills in default values for any configuration fields that
// were not explicitly set. It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendDurable
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/ganymede.db"
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}
	if cfg.Store.Env == "" {
		cfg.Store.Env = "prod"
	}

	if cfg.Retention.RetentionDays == 0 {
		cfg.Retention.RetentionDays = 90
	}
	if cfg.Retention.KeepLast == 0 {
		cfg.Retention.KeepLast = 5
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = "0 3 * * *"
	}
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = "data/archives/"
	}

	if cfg.Seed.DebounceInterval == 0 {
		cfg.Seed.DebounceInterval = 100 * time.Millisecond
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "ganymede"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "configstore"
	}
}

// DefaultConfig returns a configuration populated entirely with defaults.
// Retention archiving and metrics are enabled; retention pruning itself
// stays opt-in.
func DefaultConfig() *Config {
	cfg := &Config{
		Retention: RetentionConfig{ArchiveBeforeDelete: true},
		Metrics:   MetricsConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
