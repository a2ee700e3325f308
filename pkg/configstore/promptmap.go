package configstore

import (
	"context"
	"time"
)

// Prompt mapping surface consumed by the prompt bridge. Mappings tie a
// configuration key to an external prompt-versioning identity; the bridge
// owns the external side, the store only persists the linkage.

// PromptMappingSpec carries the caller-supplied fields for
// RegisterPromptMapping. Empty fields preserve the persisted value.
type PromptMappingSpec struct {
	PromptName              string
	ConfigKey               string
	ExternalPromptID        string
	LatestCommit            string
	LatestExternalVersionID string
}

// RegisterPromptMapping upserts the mapping for (project, prompt name).
// ConfigKey and ExternalPromptID are set once and preserved afterwards;
// LatestCommit and LatestExternalVersionID advance whenever a non-empty
// value is supplied.
func (s *Store) RegisterPromptMapping(ctx context.Context, projectID string, spec PromptMappingSpec) error {
	start := time.Now()
	err := s.withTx(ctx, func(tx Tx) error {
		existing, err := tx.GetPromptMapping(projectID, spec.PromptName)
		if err != nil {
			return err
		}

		merged := &PromptMappingRecord{
			ProjectID:               projectID,
			PromptName:              spec.PromptName,
			ConfigKey:               spec.ConfigKey,
			ExternalPromptID:        spec.ExternalPromptID,
			LatestCommit:            spec.LatestCommit,
			LatestExternalVersionID: spec.LatestExternalVersionID,
		}
		if existing != nil {
			merged.CreatedAt = existing.CreatedAt
			if existing.ConfigKey != "" {
				merged.ConfigKey = existing.ConfigKey
			}
			if existing.ExternalPromptID != "" {
				merged.ExternalPromptID = existing.ExternalPromptID
			}
			if merged.LatestCommit == "" {
				merged.LatestCommit = existing.LatestCommit
			}
			if merged.LatestExternalVersionID == "" {
				merged.LatestExternalVersionID = existing.LatestExternalVersionID
			}
		}
		return tx.UpsertPromptMapping(merged)
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveOperation("register_prompt_mapping", time.Since(start))
	return nil
}

// GetPromptMapping returns the mapping for a prompt name, or nil if none
// is registered.
func (s *Store) GetPromptMapping(ctx context.Context, projectID, promptName string) (*PromptMappingRecord, error) {
	var out *PromptMappingRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetPromptMapping(projectID, promptName)
		return err
	})
	return out, err
}

// ListPromptMappings returns every prompt mapping for a project.
func (s *Store) ListPromptMappings(ctx context.Context, projectID string) ([]*PromptMappingRecord, error) {
	var out []*PromptMappingRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListPromptMappings(projectID)
		return err
	})
	return out, err
}

// FindKeyByPromptName resolves a prompt name to its configuration key
// record. Returns nil when either the mapping or the key is absent.
func (s *Store) FindKeyByPromptName(ctx context.Context, projectID, promptName string) (*KeyRecord, error) {
	var out *KeyRecord
	err := s.withTx(ctx, func(tx Tx) error {
		mapping, err := tx.GetPromptMapping(projectID, promptName)
		if err != nil || mapping == nil {
			return err
		}
		out, err = tx.GetKey(projectID, mapping.ConfigKey)
		return err
	})
	return out, err
}

// GetExperimentPromptValue returns the ledger row an experiment variant's
// override points at for a mapped prompt. Returns nil when the mapping, the
// key or the override is absent; the bridge turns that into its named
// precondition errors.
func (s *Store) GetExperimentPromptValue(ctx context.Context, projectID, env, maskID, variant, promptName string) (*ValueRecord, error) {
	var out *ValueRecord
	err := s.withTx(ctx, func(tx Tx) error {
		mapping, err := tx.GetPromptMapping(projectID, promptName)
		if err != nil || mapping == nil {
			return err
		}
		key, err := tx.GetKey(projectID, mapping.ConfigKey)
		if err != nil || key == nil {
			return err
		}
		valueID, ok, err := tx.GetOverride(projectID, env, maskID, variant, key.ID)
		if err != nil || !ok {
			return err
		}
		out, err = tx.GetValue(valueID)
		return err
	})
	return out, err
}
