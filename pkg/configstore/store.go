package configstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// DefaultEnv is the environment used by callers that do not scope their
// writes explicitly.
const DefaultEnv = "prod"

// Store is the experiment-aware configuration store. It layers the mutation
// API and the resolver over a transactional Storage backend.
//
// All public methods run inside one atomic transaction and are serialized by
// a single internal mutex: conservative, correct-by-construction exclusivity
// for a single-process, multi-goroutine embedder. Operations block until the
// transaction commits or rolls back; there is no internal retry.
type Store struct {
	storage Storage
	metrics *Metrics
	logger  *slog.Logger
	mu      sync.Mutex
}

// New creates a store over the given backend. metrics may be nil to disable
// instrumentation.
func New(storage Storage, metrics *Metrics) *Store {
	return &Store{
		storage: storage,
		metrics: metrics,
		logger:  slog.Default().With("component", "configstore"),
	}
}

// Close closes the underlying storage backend.
func (s *Store) Close() error {
	return s.storage.Close()
}

// withTx runs fn in one exclusive transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.WithTx(ctx, fn)
}

// RegisterKeys upserts a batch of configuration keys for a project. Type and
// source metadata are filled only for keys that do not have them yet (first
// writer wins); timestamps always advance. A non-nil DefaultValue is
// published to env with created_by "default" unless a publication already
// exists, so repeated registration never overwrites a live value.
//
// Registration is best-effort per entry: a malformed entry (missing key) is
// logged and skipped, not fatal to the batch. The whole batch is one
// transaction.
func (s *Store) RegisterKeys(ctx context.Context, projectID, env string, keys []KeySpec) error {
	if env == "" {
		env = DefaultEnv
	}
	start := time.Now()
	registered := 0

	err := s.withTx(ctx, func(tx Tx) error {
		for _, spec := range keys {
			if spec.Key == "" {
				s.logger.Warn("skipping malformed key registration entry",
					"project_id", projectID,
					"reason", "missing key",
				)
				continue
			}

			keyID, err := tx.EnsureKey(projectID, spec.Key, spec.Type, spec.Source)
			if err != nil {
				return err
			}
			registered++

			if spec.DefaultValue == nil {
				continue
			}

			// Defaults never overwrite an existing publication.
			if _, ok, err := tx.GetPublished(projectID, env, keyID); err != nil {
				return err
			} else if ok {
				continue
			}

			valueID, err := tx.AppendValue(projectID, keyID, spec.DefaultValue, "default")
			if err != nil {
				return err
			}
			if err := tx.SetPublished(projectID, env, keyID, valueID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordKeyRegistrations(projectID, registered)
	s.metrics.ObserveOperation("register_keys", time.Since(start))
	return nil
}

// PublishValue appends a new value to the ledger for key and repoints the
// environment's publication pointer at it. The key is created if absent. A
// new ledger row is always inserted, even when the value is byte-identical
// to the previous one; rollback is re-pointing at an older value id.
//
// value may be any JSON-serializable Go value, including json.RawMessage.
// Returns the id of the new ledger row.
func (s *Store) PublishValue(ctx context.Context, projectID, env, key string, value any, createdBy string) (int64, error) {
	raw, err := encodeValue(key, value)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var valueID int64
	err = s.withTx(ctx, func(tx Tx) error {
		keyID, err := tx.EnsureKey(projectID, key, "", nil)
		if err != nil {
			return err
		}
		valueID, err = tx.AppendValue(projectID, keyID, raw, createdBy)
		if err != nil {
			return err
		}
		return tx.SetPublished(projectID, env, keyID, valueID)
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordPublish(projectID, env)
	s.metrics.ObserveOperation("publish_value", time.Since(start))
	s.logger.Debug("published value",
		"project_id", projectID,
		"env", env,
		"key", key,
		"value_id", valueID,
	)
	return valueID, nil
}

// CreateOrUpdateMask upserts an experiment definition and returns its
// (possibly auto-generated) name.
//
// Merge semantics on update preserve existing state over incoming zero
// values: name, salt and distribution fall back to the persisted row, and an
// already-set experiment type always wins over the incoming one, so a later
// call can never silently downgrade an A/B experiment to a live mask.
func (s *Store) CreateOrUpdateMask(ctx context.Context, projectID, env, maskID string, spec MaskSpec) (string, error) {
	if err := spec.Distribution.Validate(); err != nil {
		return "", err
	}

	start := time.Now()
	var name string
	err := s.withTx(ctx, func(tx Tx) error {
		existing, err := tx.GetMask(projectID, env, maskID)
		if err != nil {
			return err
		}

		merged := mergeMask(projectID, env, maskID, existing, spec)
		name = merged.Name
		return tx.UpsertMask(merged)
	})
	if err != nil {
		return "", err
	}

	s.metrics.ObserveOperation("create_or_update_mask", time.Since(start))
	return name, nil
}

// mergeMask computes the row to persist for an upsert, applying the
// existing-wins precedence for already-set fields.
func mergeMask(projectID, env, maskID string, existing *MaskRecord, spec MaskSpec) *MaskRecord {
	merged := &MaskRecord{
		ProjectID:      projectID,
		Env:            env,
		MaskID:         maskID,
		Name:           spec.Name,
		ExperimentType: spec.ExperimentType,
		Salt:           spec.Salt,
		Distribution:   spec.Distribution,
	}

	// Legacy boolean shim, applied at the write boundary only.
	if merged.ExperimentType == "" {
		if spec.IsAB {
			merged.ExperimentType = ExperimentAB
		} else {
			merged.ExperimentType = ExperimentLive
		}
	}

	if existing != nil {
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
		// An already-set experiment type is never downgraded.
		if existing.ExperimentType != "" {
			merged.ExperimentType = existing.ExperimentType
		}
		if merged.Name == "" {
			merged.Name = existing.Name
		}
		if merged.Salt == "" {
			merged.Salt = existing.Salt
		}
		if merged.Distribution == nil {
			merged.Distribution = existing.Distribution
		}
	}

	if merged.Name == "" {
		merged.Name = generateMaskName()
	}
	if merged.Salt == "" {
		merged.Salt = deriveSalt(projectID, env, maskID)
	}
	if merged.ExperimentType == ExperimentAB && merged.Distribution == nil {
		merged.Distribution = Distribution{{Variant: "A", Weight: 50}, {Variant: "B", Weight: 50}}
	}
	return merged
}

// SetMaskOverride appends a new value to the ledger and points the override
// pointer for (mask, variant, key) at it. The mask is auto-created as a live
// (non-A/B) experiment if it does not exist, so ad-hoc overrides need no
// explicit mask creation; the key is created if absent. Atomic.
func (s *Store) SetMaskOverride(ctx context.Context, projectID, env, maskID, variant, key string, value any, createdBy string) (int64, error) {
	raw, err := encodeValue(key, value)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var valueID int64
	err = s.withTx(ctx, func(tx Tx) error {
		mask, err := tx.GetMask(projectID, env, maskID)
		if err != nil {
			return err
		}
		if mask == nil {
			auto := mergeMask(projectID, env, maskID, nil, MaskSpec{})
			if err := tx.UpsertMask(auto); err != nil {
				return err
			}
		}

		keyID, err := tx.EnsureKey(projectID, key, "", nil)
		if err != nil {
			return err
		}
		valueID, err = tx.AppendValue(projectID, keyID, raw, createdBy)
		if err != nil {
			return err
		}
		return tx.SetOverride(projectID, env, maskID, variant, keyID, valueID)
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordOverrideWrite(projectID, env)
	s.metrics.ObserveOperation("set_mask_override", time.Since(start))
	s.logger.Debug("set mask override",
		"project_id", projectID,
		"env", env,
		"mask_id", maskID,
		"variant", variant,
		"key", key,
		"value_id", valueID,
	)
	return valueID, nil
}

// encodeValue serializes a caller-supplied value for the ledger.
func encodeValue(key string, value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, NewEncodingError(key, err)
	}
	return raw, nil
}
