package configstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ExperimentType classifies a mask (experiment).
type ExperimentType string

const (
	// ExperimentLive is a non-experimental mask: every caller is assigned
	// the "default" variant.
	ExperimentLive ExperimentType = "live"

	// ExperimentAB is a weighted A/B experiment with deterministic
	// unit-based bucketing.
	ExperimentAB ExperimentType = "ab"

	// ExperimentOptimizer is an optimizer-driven experiment. Assignment
	// behaves like ExperimentLive; variants are managed externally.
	ExperimentOptimizer ExperimentType = "optimizer"
)

// DefaultVariant is the variant assigned for non-A/B masks.
const DefaultVariant = "default"

// KeyRecord is a registered configuration key. Keys are created on first
// reference and never deleted. The surrogate ID identifies the key in all
// downstream tables.
type KeyRecord struct {
	ID        int64           `json:"id"`
	ProjectID string          `json:"project_id"`
	Key       string          `json:"key"`
	Type      string          `json:"type,omitempty"`
	Source    json.RawMessage `json:"source,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ValueRecord is one immutable entry in the value history ledger. Rows are
// append-only: new writes always insert, nothing updates or deletes them.
type ValueRecord struct {
	ID        int64           `json:"id"`
	ProjectID string          `json:"project_id"`
	KeyID     int64           `json:"key_id"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by,omitempty"`
}

// PublishedEntry is the current live pointer for one key in one environment,
// joined with the key name and value content for listings.
type PublishedEntry struct {
	ProjectID string          `json:"project_id"`
	Env       string          `json:"env"`
	Key       string          `json:"key"`
	KeyID     int64           `json:"key_id"`
	ValueID   int64           `json:"value_id"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MaskRecord is a named experiment scoped to (project, env).
type MaskRecord struct {
	ID             int64          `json:"id"`
	ProjectID      string         `json:"project_id"`
	Env            string         `json:"env"`
	MaskID         string         `json:"mask_id"`
	Name           string         `json:"name"`
	ExperimentType ExperimentType `json:"experiment_type"`
	Salt           string         `json:"salt"`
	Distribution   Distribution   `json:"distribution,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsAB reports whether the mask uses weighted bucketing.
func (m *MaskRecord) IsAB() bool {
	return m.ExperimentType == ExperimentAB
}

// OverrideEntry is one override pointer for (mask, variant, key), joined with
// the key name and value content for listings.
type OverrideEntry struct {
	ProjectID string          `json:"project_id"`
	Env       string          `json:"env"`
	MaskID    string          `json:"mask_id"`
	Variant   string          `json:"variant"`
	Key       string          `json:"key"`
	KeyID     int64           `json:"key_id"`
	ValueID   int64           `json:"value_id"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PromptMappingRecord links a configuration key to an external
// prompt-versioning identity. Maintained by the prompt bridge, persisted here.
type PromptMappingRecord struct {
	ProjectID               string    `json:"project_id"`
	ConfigKey               string    `json:"config_key"`
	PromptName              string    `json:"prompt_name"`
	ExternalPromptID        string    `json:"external_prompt_id,omitempty"`
	LatestCommit            string    `json:"latest_commit,omitempty"`
	LatestExternalVersionID string    `json:"latest_external_version_id,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// KeySpec describes one key in a RegisterKeys batch. Key is required; all
// other fields are optional. DefaultValue, when non-nil, is published to the
// target environment unless a publication already exists for the key.
type KeySpec struct {
	Key          string
	Type         string
	DefaultValue json.RawMessage
	Source       json.RawMessage
}

// MaskSpec carries the caller-supplied fields for CreateOrUpdateMask. Zero
// values mean "not provided": the store fills Name, Salt and ExperimentType
// deterministically, and preserves already-persisted fields on update.
type MaskSpec struct {
	// Name is the human-readable experiment name. Auto-generated when empty.
	// Purely cosmetic; never affects resolution.
	Name string

	// ExperimentType is the mask classification. When empty it is derived
	// from the legacy IsAB flag (true -> ab, false -> live).
	ExperimentType ExperimentType

	// IsAB is the legacy boolean experiment flag, consulted only when
	// ExperimentType is empty.
	IsAB bool

	// Distribution maps variant names to integer percentage-point weights,
	// in declared order. Required (or defaulted) only for A/B masks.
	Distribution Distribution

	// Salt feeds the bucketing hash. Derived from (project, env, mask)
	// when empty, so assignment stays reproducible across calls.
	Salt string
}

// VariantWeight is one (variant, weight) pair of a distribution. Weight is a
// literal percentage point count; weights are never renormalized.
type VariantWeight struct {
	Variant string
	Weight  int
}

// Distribution is an order-preserving variant weight mapping. Bucketing walks
// the distribution in declared order, so order is part of the experiment
// definition and must survive serialization.
type Distribution []VariantWeight

// MarshalJSON encodes the distribution as a JSON object whose member order
// matches the declared variant order.
func (d Distribution) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, vw := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(vw.Variant)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", vw.Weight)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into a distribution, preserving the
// member order of the document.
func (d *Distribution) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("distribution: expected JSON object, got %v", tok)
	}

	out := Distribution{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		variant, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("distribution: expected string key, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("distribution: weight for %q is not a number", variant)
		}
		weight, err := num.Int64()
		if err != nil {
			return fmt.Errorf("distribution: weight for %q is not an integer: %w", variant, err)
		}
		out = append(out, VariantWeight{Variant: variant, Weight: int(weight)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// Validate checks that all weights are non-negative integers.
func (d Distribution) Validate() error {
	for _, vw := range d {
		if vw.Variant == "" {
			return fmt.Errorf("distribution: empty variant name")
		}
		if vw.Weight < 0 {
			return fmt.Errorf("distribution: negative weight %d for variant %q", vw.Weight, vw.Variant)
		}
	}
	return nil
}

// ResolveResult is the structured outcome of a Resolve call. Absence is part
// of the result, never an error: MissingKeys lists keys that were never
// configured, AssignedVariant is empty when no experiment context applied,
// and ExperimentType is empty when no mask was found.
type ResolveResult struct {
	// Values maps each resolved key to its deserialized value.
	Values map[string]any `json:"resolved_values"`

	// ValueIDs maps each resolved key to the ledger id of its value row,
	// for caller-side caching and trace attribution.
	ValueIDs map[string]int64 `json:"resolved_value_ids"`

	// MissingKeys lists requested keys with no value in this environment.
	MissingKeys []string `json:"missing_keys"`

	// AssignedVariant is the variant the caller was bucketed into, or
	// empty when no experiment context resolved.
	AssignedVariant string `json:"assigned_variant,omitempty"`

	// ExperimentType is the type of the mask that was consulted, or empty
	// when no mask was found.
	ExperimentType ExperimentType `json:"experiment_type,omitempty"`
}

// Snapshot is a full read-only projection of one (project, env) scope,
// produced by Store.Dump for debugging and export.
type Snapshot struct {
	ProjectID      string                 `json:"project_id"`
	Env            string                 `json:"env"`
	Keys           []*KeyRecord           `json:"keys"`
	Published      []*PublishedEntry      `json:"published"`
	Masks          []*MaskRecord          `json:"masks"`
	Overrides      []*OverrideEntry       `json:"overrides"`
	PromptMappings []*PromptMappingRecord `json:"prompt_mappings"`
}

// Storage is the transactional persistence backend for the store. Every
// implementation must guarantee that WithTx commits on a nil return, rolls
// back on error or panic, and admits exactly one transaction at a time.
type Storage interface {
	// WithTx runs fn inside one atomic transaction. Callers never observe
	// partial writes: a failure mid-operation leaves the backend in its
	// pre-transaction state.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases backend resources. The backend must not be used
	// after Close.
	Close() error
}

// Tx is the set of statement-level primitives available inside a
// transaction. Lookup methods report absence as (nil, nil) or a false
// second return, never as an error.
type Tx interface {
	// EnsureKey upserts a config key. Type and source are filled only if
	// not already set (first writer wins); updated_at always advances.
	EnsureKey(projectID, key, keyType string, source json.RawMessage) (int64, error)
	GetKey(projectID, key string) (*KeyRecord, error)
	ListKeys(projectID string) ([]*KeyRecord, error)

	// AppendValue inserts a new value ledger row. Always a new row, even
	// for byte-identical values.
	AppendValue(projectID string, keyID int64, value json.RawMessage, createdBy string) (int64, error)
	GetValue(valueID int64) (*ValueRecord, error)
	ValueHistory(projectID string, keyID int64) ([]*ValueRecord, error)

	SetPublished(projectID, env string, keyID, valueID int64) error
	GetPublished(projectID, env string, keyID int64) (int64, bool, error)
	ListPublished(projectID, env string) ([]*PublishedEntry, error)

	UpsertMask(rec *MaskRecord) error
	GetMask(projectID, env, maskID string) (*MaskRecord, error)
	ListMasks(projectID, env string) ([]*MaskRecord, error)

	SetOverride(projectID, env, maskID, variant string, keyID, valueID int64) error
	GetOverride(projectID, env, maskID, variant string, keyID int64) (int64, bool, error)
	ListOverrides(projectID, env, maskID string) ([]*OverrideEntry, error)

	UpsertPromptMapping(rec *PromptMappingRecord) error
	GetPromptMapping(projectID, promptName string) (*PromptMappingRecord, error)
	ListPromptMappings(projectID string) ([]*PromptMappingRecord, error)

	// UnreferencedValueIDs returns ids of value rows older than the cutoff
	// that no published or override pointer references, excluding the
	// keepLast most recent rows of each key. Retention support.
	UnreferencedValueIDs(olderThan time.Time, keepLast int) ([]int64, error)
	ValuesByID(ids []int64) ([]*ValueRecord, error)
	DeleteValues(ids []int64) (int64, error)
	CountValues(projectID string) (int64, error)
}
