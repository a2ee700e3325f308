// Package config provides YAML-based configuration for Mercator Ganymede.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// unset fields, environment variable overrides (GANYMEDE_*) are optionally
// applied, and the result is validated as a whole - every validation failure
// is reported, not just the first.
//
// Example configuration:
//
//	store:
//	  backend: durable
//	  path: data/ganymede.db
//	  env: prod
//	retention:
//	  enabled: true
//	  retention_days: 90
//	  keep_last: 5
//	  prune_schedule: "0 3 * * *"
//	  archive_before_delete: true
//	  archive_path: data/archives/
//	seed:
//	  path: config/keys.yaml
//	  watch: true
//	metrics:
//	  enabled: true
package config
