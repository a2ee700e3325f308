package configstore_test

import (
	"context"
	"fmt"
	"testing"

	"mercator-hq/ganymede/pkg/configstore"
)

func TestResolve_PrecedenceOverrideBeatsPublished(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Model.name", "baseline", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
		ExperimentType: configstore.ExperimentAB,
		Distribution:   configstore.Distribution{{Variant: "A", Weight: 100}},
	}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}
	if _, err := store.SetMaskOverride(ctx, "p1", "prod", "exp1", "A", "Model.name", "candidate", ""); err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}

	// Without experiment context the published value wins.
	plain, err := store.Resolve(ctx, "p1", "prod", []string{"Model.name"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if plain.Values["Model.name"] != "baseline" {
		t.Errorf("expected published value, got %v", plain.Values["Model.name"])
	}
	if plain.AssignedVariant != "" {
		t.Errorf("no mask requested, got variant %q", plain.AssignedVariant)
	}

	// Under the experiment, the variant override wins.
	exp, err := store.Resolve(ctx, "p1", "prod", []string{"Model.name"}, "exp1", "user-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if exp.AssignedVariant != "A" {
		t.Fatalf("expected variant A (weight 100), got %q", exp.AssignedVariant)
	}
	if exp.Values["Model.name"] != "candidate" {
		t.Errorf("expected override value, got %v", exp.Values["Model.name"])
	}
	if exp.ExperimentType != configstore.ExperimentAB {
		t.Errorf("expected experiment type %q, got %q", configstore.ExperimentAB, exp.ExperimentType)
	}
}

func TestResolve_VariantWithoutOverrideFallsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Model.name", "baseline", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
		ExperimentType: configstore.ExperimentAB,
		Distribution:   configstore.Distribution{{Variant: "A", Weight: 100}},
	}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Model.name"}, "exp1", "user-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.AssignedVariant != "A" {
		t.Fatalf("expected variant A, got %q", result.AssignedVariant)
	}
	if result.Values["Model.name"] != "baseline" {
		t.Errorf("assigned variant without override must fall back to published, got %v",
			result.Values["Model.name"])
	}
}

func TestResolve_UnknownMaskMeansNoExperiment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Model.name", "baseline", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Model.name"}, "nope", "user-1")
	if err != nil {
		t.Fatalf("unknown mask must not be an error: %v", err)
	}
	if result.AssignedVariant != "" {
		t.Errorf("unknown mask must assign no variant, got %q", result.AssignedVariant)
	}
	if result.Values["Model.name"] != "baseline" {
		t.Errorf("expected published value, got %v", result.Values["Model.name"])
	}
}

func TestResolve_MissingKeysReported(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Model.name", "baseline", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	// Registered but never published.
	if err := store.RegisterKeys(ctx, "p1", "prod", []configstore.KeySpec{{Key: "Model.bare"}}); err != nil {
		t.Fatalf("RegisterKeys failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod",
		[]string{"Model.name", "Model.bare", "Model.unknown"}, "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(result.Values) != 1 {
		t.Errorf("expected 1 resolved value, got %d", len(result.Values))
	}
	if len(result.MissingKeys) != 2 {
		t.Fatalf("expected 2 missing keys, got %v", result.MissingKeys)
	}
	for _, key := range []string{"Model.bare", "Model.unknown"} {
		found := false
		for _, m := range result.MissingKeys {
			if m == key {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q in missing keys, got %v", key, result.MissingKeys)
		}
	}
}

func TestResolve_NonABMaskAssignsDefaultVariant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PublishValue(ctx, "p1", "prod", "Model.name", "baseline", ""); err != nil {
		t.Fatalf("PublishValue failed: %v", err)
	}
	if _, err := store.SetMaskOverride(ctx, "p1", "prod", "live1", configstore.DefaultVariant,
		"Model.name", "pinned", ""); err != nil {
		t.Fatalf("SetMaskOverride failed: %v", err)
	}

	result, err := store.Resolve(ctx, "p1", "prod", []string{"Model.name"}, "live1", "any-unit")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.AssignedVariant != configstore.DefaultVariant {
		t.Fatalf("non-A/B mask must assign %q, got %q", configstore.DefaultVariant, result.AssignedVariant)
	}
	if result.Values["Model.name"] != "pinned" {
		t.Errorf("expected override value, got %v", result.Values["Model.name"])
	}
}

func TestResolve_AssignmentSticky(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
		ExperimentType: configstore.ExperimentAB,
		Distribution:   configstore.Distribution{{Variant: "A", Weight: 50}, {Variant: "B", Weight: 50}},
	}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}

	first, err := store.Resolve(ctx, "p1", "prod", nil, "exp1", "user-42")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := store.Resolve(ctx, "p1", "prod", nil, "exp1", "user-42")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if again.AssignedVariant != first.AssignedVariant {
			t.Fatalf("assignment must be sticky: got %q then %q", first.AssignedVariant, again.AssignedVariant)
		}
	}
}

func TestResolve_SplitRoughlyBalanced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateOrUpdateMask(ctx, "p1", "prod", "exp1", configstore.MaskSpec{
		ExperimentType: configstore.ExperimentAB,
		Distribution:   configstore.Distribution{{Variant: "A", Weight: 50}, {Variant: "B", Weight: 50}},
	}); err != nil {
		t.Fatalf("CreateOrUpdateMask failed: %v", err)
	}

	const units = 10000
	countA := 0
	for i := 0; i < units; i++ {
		result, err := store.Resolve(ctx, "p1", "prod", nil, "exp1", fmt.Sprintf("unit-%d", i))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		switch result.AssignedVariant {
		case "A":
			countA++
		case "B":
		default:
			t.Fatalf("unexpected variant %q", result.AssignedVariant)
		}
	}

	share := float64(countA) / units
	if share < 0.40 || share > 0.60 {
		t.Errorf("50/50 split drifted too far: variant A got %.1f%%", share*100)
	}
}
