package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path. It
// applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use LoadWithEnvOverrides
// for that behavior.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_STORE_BACKEND) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies GANYMEDE_* environment variables onto the
// configuration.
func applyEnvOverrides(cfg *Config) {
	setString("GANYMEDE_STORE_BACKEND", &cfg.Store.Backend)
	setString("GANYMEDE_STORE_PATH", &cfg.Store.Path)
	setString("GANYMEDE_STORE_ENV", &cfg.Store.Env)
	setDuration("GANYMEDE_STORE_BUSY_TIMEOUT", &cfg.Store.BusyTimeout)

	setBool("GANYMEDE_RETENTION_ENABLED", &cfg.Retention.Enabled)
	setInt("GANYMEDE_RETENTION_DAYS", &cfg.Retention.RetentionDays)
	setInt("GANYMEDE_RETENTION_KEEP_LAST", &cfg.Retention.KeepLast)
	setString("GANYMEDE_RETENTION_PRUNE_SCHEDULE", &cfg.Retention.PruneSchedule)
	setBool("GANYMEDE_RETENTION_ARCHIVE_BEFORE_DELETE", &cfg.Retention.ArchiveBeforeDelete)
	setString("GANYMEDE_RETENTION_ARCHIVE_PATH", &cfg.Retention.ArchivePath)

	setString("GANYMEDE_SEED_PATH", &cfg.Seed.Path)
	setBool("GANYMEDE_SEED_WATCH", &cfg.Seed.Watch)
	setDuration("GANYMEDE_SEED_DEBOUNCE_INTERVAL", &cfg.Seed.DebounceInterval)

	setBool("GANYMEDE_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("GANYMEDE_METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	setString("GANYMEDE_METRICS_SUBSYSTEM", &cfg.Metrics.Subsystem)
}

func setString(name string, target *string) {
	if v, ok := os.LookupEnv(name); ok {
		*target = v
	}
}

func setBool(name string, target *bool) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func setInt(name string, target *int) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setDuration(name string, target *time.Duration) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = parsed
		}
	}
}
