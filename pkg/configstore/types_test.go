package configstore

import (
	"encoding/json"
	"testing"
)

func TestDistribution_MarshalPreservesOrder(t *testing.T) {
	d := Distribution{
		{Variant: "z-last", Weight: 20},
		{Variant: "a-first", Weight: 30},
		{Variant: "middle", Weight: 50},
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"z-last":20,"a-first":30,"middle":50}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestDistribution_RoundTrip(t *testing.T) {
	in := Distribution{
		{Variant: "B", Weight: 50},
		{Variant: "A", Weight: 50},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out Distribution
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length changed: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d changed: %+v vs %+v", i, out[i], in[i])
		}
	}
}

func TestDistribution_UnmarshalNull(t *testing.T) {
	d := Distribution{{Variant: "A", Weight: 100}}
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil distribution, got %v", d)
	}
}

func TestDistribution_UnmarshalRejectsNonObject(t *testing.T) {
	var d Distribution
	if err := json.Unmarshal([]byte(`[1,2]`), &d); err == nil {
		t.Error("expected error for non-object document")
	}
	if err := json.Unmarshal([]byte(`{"A":"fifty"}`), &d); err == nil {
		t.Error("expected error for non-numeric weight")
	}
	if err := json.Unmarshal([]byte(`{"A":50.5}`), &d); err == nil {
		t.Error("expected error for fractional weight")
	}
}

func TestDistribution_Validate(t *testing.T) {
	cases := []struct {
		name    string
		dist    Distribution
		wantErr bool
	}{
		{"nil", nil, false},
		{"valid", Distribution{{Variant: "A", Weight: 50}, {Variant: "B", Weight: 50}}, false},
		{"under 100 allowed", Distribution{{Variant: "A", Weight: 10}}, false},
		{"negative weight", Distribution{{Variant: "A", Weight: -1}}, true},
		{"empty variant", Distribution{{Variant: "", Weight: 50}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.dist.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMaskRecord_IsAB(t *testing.T) {
	if (&MaskRecord{ExperimentType: ExperimentLive}).IsAB() {
		t.Error("live mask reported as A/B")
	}
	if (&MaskRecord{ExperimentType: ExperimentOptimizer}).IsAB() {
		t.Error("optimizer mask reported as A/B")
	}
	if !(&MaskRecord{ExperimentType: ExperimentAB}).IsAB() {
		t.Error("A/B mask not reported as A/B")
	}
}
