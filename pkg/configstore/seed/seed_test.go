package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/ganymede/pkg/configstore"
	"mercator-hq/ganymede/pkg/configstore/storage"
)

const testSeedYAML = `
project_id: p1
env: prod
keys:
  - key: Service.timeout
    type: int
    default: 30
  - key: Service.prompt
    type: string
    default: "You are a helpful assistant."
    source:
      owner: serving-team
  - key: Service.unset
    type: string
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing seed file failed: %v", err)
	}
	return path
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader(configstore.New(storage.NewMemoryStorage(), nil))

	f, err := loader.Load(writeSeedFile(t, testSeedYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.ProjectID != "p1" || f.Env != "prod" {
		t.Errorf("unexpected header: project=%q env=%q", f.ProjectID, f.Env)
	}
	if len(f.Keys) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(f.Keys))
	}
	if f.Keys[0].Key != "Service.timeout" || f.Keys[0].Type != "int" {
		t.Errorf("unexpected first entry: %+v", f.Keys[0])
	}
}

func TestLoader_LoadDefaultsEnv(t *testing.T) {
	loader := NewLoader(configstore.New(storage.NewMemoryStorage(), nil))

	f, err := loader.Load(writeSeedFile(t, "project_id: p1\nkeys: []\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Env != configstore.DefaultEnv {
		t.Errorf("expected default env %q, got %q", configstore.DefaultEnv, f.Env)
	}
}

func TestLoader_LoadRejectsMissingProject(t *testing.T) {
	loader := NewLoader(configstore.New(storage.NewMemoryStorage(), nil))

	if _, err := loader.Load(writeSeedFile(t, "env: prod\nkeys: []\n")); err == nil {
		t.Fatal("expected error for missing project_id")
	}
}

func TestLoader_LoadRejectsMissingFile(t *testing.T) {
	loader := NewLoader(configstore.New(storage.NewMemoryStorage(), nil))

	if _, err := loader.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoader_ApplySeedsDefaults(t *testing.T) {
	store := configstore.New(storage.NewMemoryStorage(), nil)
	loader := NewLoader(store)
	ctx := context.Background()

	if err := loader.LoadAndApply(ctx, writeSeedFile(t, testSeedYAML)); err != nil {
		t.Fatalf("LoadAndApply failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod",
		[]string{"Service.timeout", "Service.prompt", "Service.unset"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Values["Service.timeout"] != float64(30) {
		t.Errorf("expected seeded default 30, got %v", result.Values["Service.timeout"])
	}
	if result.Values["Service.prompt"] != "You are a helpful assistant." {
		t.Errorf("unexpected prompt default: %v", result.Values["Service.prompt"])
	}
	if len(result.MissingKeys) != 1 || result.MissingKeys[0] != "Service.unset" {
		t.Errorf("entry without default must stay unpublished, got %v", result.MissingKeys)
	}

	key, err := store.GetKey(ctx, "p1", "Service.prompt")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if string(key.Source) != `{"owner":"serving-team"}` {
		t.Errorf("unexpected source metadata: %s", key.Source)
	}
}

func TestLoader_ReapplyIsIdempotent(t *testing.T) {
	store := configstore.New(storage.NewMemoryStorage(), nil)
	loader := NewLoader(store)
	ctx := context.Background()
	path := writeSeedFile(t, testSeedYAML)

	if err := loader.LoadAndApply(ctx, path); err != nil {
		t.Fatalf("LoadAndApply failed: %v", err)
	}

	// A publication after the first seed application must survive a re-apply.
	if _, err := store.PublishValue(ctx, "p1", "prod", "Service.timeout", 60, "operator"); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if err := loader.LoadAndApply(ctx, path); err != nil {
		t.Fatalf("second LoadAndApply failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Service.timeout"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Values["Service.timeout"] != float64(60) {
		t.Errorf("re-applied default must not overwrite the publication, got %v",
			result.Values["Service.timeout"])
	}

	history, err := store.ValueHistory(ctx, "p1", "Service.prompt")
	if err != nil {
		t.Fatalf("ValueHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("re-apply must not duplicate defaults, got %d ledger rows", len(history))
	}
}
