package storage

import (
	"path/filepath"
	"testing"

	"mercator-hq/ganymede/pkg/config"
)

func TestNewFromConfig(t *testing.T) {
	memory, err := NewFromConfig(&config.StoreConfig{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("memory backend failed: %v", err)
	}
	if _, ok := memory.(*MemoryStorage); !ok {
		t.Errorf("expected *MemoryStorage, got %T", memory)
	}

	durable, err := NewFromConfig(&config.StoreConfig{
		Backend: config.BackendDurable,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("durable backend failed: %v", err)
	}
	defer durable.Close()
	if _, ok := durable.(*SQLiteStorage); !ok {
		t.Errorf("expected *SQLiteStorage, got %T", durable)
	}

	if _, err := NewFromConfig(&config.StoreConfig{Backend: "bogus"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
