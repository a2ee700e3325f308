package configstore_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/configstore"
	"mercator-hq/ganymede/pkg/configstore/storage"
)

// newTestStore creates a store over the in-memory backend.
func newTestStore(t *testing.T) *configstore.Store {
	t.Helper()
	return configstore.New(storage.NewMemoryStorage(), nil)
}

func TestRegisterKeys_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []configstore.KeySpec{
		{Key: "Service.timeout", Type: "int", DefaultValue: json.RawMessage(`30`)},
		{Key: "Service.prompt", Type: "string"},
	}

	if err := store.RegisterKeys(ctx, "p1", "prod", keys); err != nil {
		t.Fatalf("RegisterKeys failed: %v", err)
	}
	if err := store.RegisterKeys(ctx, "p1", "prod", keys); err != nil {
		t.Fatalf("second RegisterKeys failed: %v", err)
	}

	listed, err := store.ListKeys(ctx, "p1")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 keys after double registration, got %d", len(listed))
	}

	// The default must have been published exactly once.
	history, err := store.ValueHistory(ctx, "p1", "Service.timeout")
	if err != nil {
		t.Fatalf("ValueHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 default publication, got %d", len(history))
	}
	if history[0].CreatedBy != "default" {
		t.Errorf("expected created_by %q, got %q", "default", history[0].CreatedBy)
	}
}

func TestRegisterKeys_DefaultNeverOverwritesPublication(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Service.timeout", 45, "deploy"); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}

	err := store.RegisterKeys(ctx, "p1", "prod", []configstore.KeySpec{
		{Key: "Service.timeout", DefaultValue: json.RawMessage(`30`)},
	})
	if err != nil {
		t.Fatalf("RegisterKeys failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Service.timeout"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := result.Values["Service.timeout"]; got != float64(45) {
		t.Errorf("expected published value 45 to survive registration, got %v", got)
	}
}

func TestRegisterKeys_MalformedEntrySkipped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RegisterKeys(ctx, "p1", "prod", []configstore.KeySpec{
		{Key: ""}, // malformed: no key
		{Key: "Service.prompt"},
	})
	if err != nil {
		t.Fatalf("RegisterKeys should not fail on a malformed entry: %v", err)
	}

	listed, err := store.ListKeys(ctx, "p1")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 key, got %d", len(listed))
	}
	if listed[0].Key != "Service.prompt" {
		t.Errorf("unexpected key %q", listed[0].Key)
	}
}

func TestRegisterKeys_MetadataFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []configstore.KeySpec{{Key: "Service.timeout", Type: "int", Source: json.RawMessage(`{"owner":"a"}`)}}
	second := []configstore.KeySpec{{Key: "Service.timeout", Type: "string", Source: json.RawMessage(`{"owner":"b"}`)}}

	if err := store.RegisterKeys(ctx, "p1", "prod", first); err != nil {
		t.Fatalf("RegisterKeys failed: %v", err)
	}
	if err := store.RegisterKeys(ctx, "p1", "prod", second); err != nil {
		t.Fatalf("RegisterKeys failed: %v", err)
	}

	rec, err := store.GetKey(ctx, "p1", "Service.timeout")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if rec.Type != "int" {
		t.Errorf("expected first-writer type %q, got %q", "int", rec.Type)
	}
	if string(rec.Source) != `{"owner":"a"}` {
		t.Errorf("expected first-writer source, got %s", rec.Source)
	}
}

func TestPublishValue_AppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v1, err := store.PublishValue(ctx, "p1", "prod", "Foo.bar", map[string]any{"x": 1}, "")
	if err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	v2, err := store.PublishValue(ctx, "p1", "prod", "Foo.bar", map[string]any{"x": 1}, "")
	if err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if v1 == v2 {
		t.Fatalf("identical values must still produce distinct ledger rows, got %d twice", v1)
	}

	history, err := store.ValueHistory(ctx, "p1", "Foo.bar")
	if err != nil {
		t.Fatalf("ValueHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(history))
	}
}

func TestPublishValue_PointerOverwriteKeepsHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v1, err := store.PublishValue(ctx, "p1", "prod", "Foo.bar", "old", "")
	if err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if _, err := store.PublishValue(ctx, "p1", "prod", "Foo.bar", "new", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Foo.bar"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := result.Values["Foo.bar"]; got != "new" {
		t.Errorf("expected latest publication, got %v", got)
	}

	// The old row still exists and still carries its original content.
	old, err := store.GetValue(ctx, v1)
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if old == nil {
		t.Fatal("old value row must survive pointer overwrite")
	}
	if string(old.Value) != `"old"` {
		t.Errorf("old value content changed: %s", old.Value)
	}
}

func TestCreateOrUpdateMask_Defaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	name, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{IsAB: true})
	if err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}
	if !regexp.MustCompile(`^[a-z]+-[a-z]+-\d{4}$`).MatchString(name) {
		t.Errorf("unexpected auto-generated name %q", name)
	}

	mask, err := store.GetMask(ctx, "p1", "prod", "exp1")
	if err != nil {
		t.Fatalf("GetMask failed: %v", err)
	}
	if mask.ExperimentType != configstore.ExperimentAB {
		t.Errorf("legacy is_ab should map to %q, got %q", configstore.ExperimentAB, mask.ExperimentType)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(mask.Salt) {
		t.Errorf("expected a 16-char hex salt, got %q", mask.Salt)
	}
	if len(mask.Distribution) != 2 {
		t.Errorf("expected defaulted 50/50 distribution, got %v", mask.Distribution)
	}
}

func TestCreateOrUpdateMask_ExistingTypeWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
		ExperimentType: configstore.ExperimentAB,
		Distribution:   configstore.Distribution{{Variant: "A", Weight: 100}},
	}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}

	// An update without an explicit type must not downgrade the experiment.
	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{Name: "renamed"}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}

	mask, err := store.GetMask(ctx, "p1", "prod", "exp1")
	if err != nil {
		t.Fatalf("GetMask failed: %v", err)
	}
	if mask.ExperimentType != configstore.ExperimentAB {
		t.Errorf("existing experiment type must win, got %q", mask.ExperimentType)
	}
	if mask.Name != "renamed" {
		t.Errorf("expected updated name, got %q", mask.Name)
	}
	if len(mask.Distribution) != 1 || mask.Distribution[0].Variant != "A" {
		t.Errorf("distribution must be preserved on update, got %v", mask.Distribution)
	}
}

func TestCreateOrUpdateMask_NameAndSaltStableAcrossUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	name1, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{})
	if err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}
	mask1, err := store.GetMask(ctx, "p1", "prod", "exp1")
	if err != nil {
		t.Fatalf("GetMask failed: %v", err)
	}
	name2, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{})
	if err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}
	mask2, err := store.GetMask(ctx, "p1", "prod", "exp1")
	if err != nil {
		t.Fatalf("GetMask failed: %v", err)
	}
	if name1 != name2 {
		t.Errorf("auto-generated name must be stable across updates: %q vs %q", name1, name2)
	}
	if mask1.Salt != mask2.Salt {
		t.Errorf("salt must be stable across updates: %q vs %q", mask1.Salt, mask2.Salt)
	}
}

func TestSetMaskOverride_AutoCreatesMask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetMaskOverride(ctx, "p1", "prod", "adhoc", "default", "Foo.bar", 1, ""); err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}

	mask, err := store.GetMask(ctx, "p1", "prod", "adhoc")
	if err != nil {
		t.Fatalf("GetMask failed: %v", err)
	}
	if mask == nil {
		t.Fatal("override write must auto-create the mask")
	}
	if mask.ExperimentType != configstore.ExperimentLive {
		t.Errorf("auto-created mask must be non-A/B, got %q", mask.ExperimentType)
	}

	overrides, err := store.ListOverrides(ctx, "p1", "prod", "adhoc")
	if err != nil {
		t.Fatalf("ListOverrides failed: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected 1 override, got %d", len(overrides))
	}
}

func TestSetMaskOverride_UpsertsPointer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v1, err := store.SetMaskOverride(ctx, "p1", "prod", "exp1", "A", "Foo.bar", 1, "")
	if err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}
	v2, err := store.SetMaskOverride(ctx, "p1", "prod", "exp1", "A", "Foo.bar", 2, "")
	if err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}
	if v1 == v2 {
		t.Fatal("override writes must append distinct ledger rows")
	}

	overrides, err := store.ListOverrides(ctx, "p1", "prod", "exp1")
	if err != nil {
		t.Fatalf("ListOverrides failed: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected a single override pointer after upsert, got %d", len(overrides))
	}
	if overrides[0].ValueID != v2 {
		t.Errorf("override pointer must track the latest value, got %d want %d", overrides[0].ValueID, v2)
	}
}

func TestDump(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Foo.bar", 1, ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if _, err := store.SetMaskOverride(ctx, "p1", "prod", "exp1", "A", "Foo.bar", 2, ""); err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}
	if err := store.RegisterPromptMapping(ctx, "p1", configstore.PromptMappingSpec{
		PromptName: "greeting",
		ConfigKey:  "Foo.bar",
	}); err != nil {
		t.Fatalf("RegisterPromptMapping failed: %v", err)
	}

	snap, err := store.Dump(ctx, "p1", "prod")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if len(snap.Keys) != 1 || len(snap.Published) != 1 || len(snap.Masks) != 1 ||
		len(snap.Overrides) != 1 || len(snap.PromptMappings) != 1 {
		t.Errorf("unexpected snapshot shape: keys=%d published=%d masks=%d overrides=%d mappings=%d",
			len(snap.Keys), len(snap.Published), len(snap.Masks), len(snap.Overrides), len(snap.PromptMappings))
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *configstore.Metrics
	m.RecordKeyRegistrations("p1", 2)
	m.RecordPublish("p1", "prod")
	m.RecordOverrideWrite("p1", "prod")
	m.RecordResolution("p1", "prod", 1, 0)
	m.RecordVariantAssignment(configstore.ExperimentAB)
	m.ObserveOperation("resolve", time.Millisecond)
}
