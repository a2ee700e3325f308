package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/ganymede/pkg/configstore"
)

// File is a declarative key-seed document: the RegisterKeys batch surface
// expressed as a YAML file.
//
//	project_id: p1
//	env: prod
//	keys:
//	  - key: Service.timeout
//	    type: int
//	    default: 30
//	  - key: Service.prompt
//	    type: string
//	    default: "You are a helpful assistant."
//	    source:
//	      owner: serving-team
type File struct {
	ProjectID string  `yaml:"project_id"`
	Env       string  `yaml:"env"`
	Keys      []Entry `yaml:"keys"`
}

// Entry is one key declaration. Default and Source accept arbitrary YAML
// values, which are carried into the store as JSON.
type Entry struct {
	Key     string `yaml:"key"`
	Type    string `yaml:"type"`
	Default any    `yaml:"default"`
	Source  any    `yaml:"source"`
}

// Loader loads seed files and applies them to a store.
type Loader struct {
	store  *configstore.Store
	logger *slog.Logger
}

// NewLoader creates a loader over the given store.
func NewLoader(store *configstore.Store) *Loader {
	return &Loader{
		store:  store,
		logger: slog.Default().With("component", "configstore.seed"),
	}
}

// Load parses a seed file.
func (l *Loader) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configstore.NewSeedError(path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, configstore.NewSeedError(path, err)
	}
	if f.ProjectID == "" {
		return nil, configstore.NewSeedError(path, fmt.Errorf("project_id is required"))
	}
	if f.Env == "" {
		f.Env = configstore.DefaultEnv
	}
	return &f, nil
}

// Apply registers the file's keys with the store. Entries that cannot be
// encoded are skipped and logged, matching the best-effort contract of
// RegisterKeys; defaults never overwrite an existing publication, so
// re-applying a seed file is idempotent.
func (l *Loader) Apply(ctx context.Context, f *File) error {
	specs := make([]configstore.KeySpec, 0, len(f.Keys))
	for _, entry := range f.Keys {
		spec := configstore.KeySpec{Key: entry.Key, Type: entry.Type}

		if entry.Default != nil {
			raw, err := json.Marshal(entry.Default)
			if err != nil {
				l.logger.Warn("skipping seed entry with unencodable default",
					"project_id", f.ProjectID,
					"key", entry.Key,
					"error", err,
				)
				continue
			}
			spec.DefaultValue = raw
		}
		if entry.Source != nil {
			raw, err := json.Marshal(entry.Source)
			if err != nil {
				l.logger.Warn("skipping seed entry with unencodable source",
					"project_id", f.ProjectID,
					"key", entry.Key,
					"error", err,
				)
				continue
			}
			spec.Source = raw
		}
		specs = append(specs, spec)
	}

	if err := l.store.RegisterKeys(ctx, f.ProjectID, f.Env, specs); err != nil {
		return err
	}

	l.logger.Info("seed file applied",
		"project_id", f.ProjectID,
		"env", f.Env,
		"key_count", len(specs),
	)
	return nil
}

// LoadAndApply loads a seed file and applies it in one step.
func (l *Loader) LoadAndApply(ctx context.Context, path string) error {
	f, err := l.Load(path)
	if err != nil {
		return err
	}
	return l.Apply(ctx, f)
}
