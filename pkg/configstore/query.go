package configstore

import "context"

// Read-only projections for debugging, tooling and the prompt bridge. All of
// them run under the same exclusive-transaction discipline as the write path.

// ListKeys returns every registered key for a project.
func (s *Store) ListKeys(ctx context.Context, projectID string) ([]*KeyRecord, error) {
	var out []*KeyRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListKeys(projectID)
		return err
	})
	return out, err
}

// GetKey returns one key record, or nil if the key was never registered.
func (s *Store) GetKey(ctx context.Context, projectID, key string) (*KeyRecord, error) {
	var out *KeyRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetKey(projectID, key)
		return err
	})
	return out, err
}

// ListPublished returns every live publication pointer for an environment,
// joined with key names and value content.
func (s *Store) ListPublished(ctx context.Context, projectID, env string) ([]*PublishedEntry, error) {
	var out []*PublishedEntry
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListPublished(projectID, env)
		return err
	})
	return out, err
}

// ListMasks returns every experiment defined for an environment.
func (s *Store) ListMasks(ctx context.Context, projectID, env string) ([]*MaskRecord, error) {
	var out []*MaskRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListMasks(projectID, env)
		return err
	})
	return out, err
}

// GetMask returns one experiment, or nil if it does not exist.
func (s *Store) GetMask(ctx context.Context, projectID, env, maskID string) (*MaskRecord, error) {
	var out *MaskRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetMask(projectID, env, maskID)
		return err
	})
	return out, err
}

// ListOverrides returns every override pointer for an experiment.
func (s *Store) ListOverrides(ctx context.Context, projectID, env, maskID string) ([]*OverrideEntry, error) {
	var out []*OverrideEntry
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListOverrides(projectID, env, maskID)
		return err
	})
	return out, err
}

// ValueHistory returns the full append-only ledger for one key, oldest
// first. Returns nil if the key was never registered.
func (s *Store) ValueHistory(ctx context.Context, projectID, key string) ([]*ValueRecord, error) {
	var out []*ValueRecord
	err := s.withTx(ctx, func(tx Tx) error {
		rec, err := tx.GetKey(projectID, key)
		if err != nil || rec == nil {
			return err
		}
		out, err = tx.ValueHistory(projectID, rec.ID)
		return err
	})
	return out, err
}

// GetValue returns one ledger row by id, or nil if it does not exist.
// Previously returned value ids always resolve to the same content.
func (s *Store) GetValue(ctx context.Context, valueID int64) (*ValueRecord, error) {
	var out *ValueRecord
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetValue(valueID)
		return err
	})
	return out, err
}

// Dump produces a full snapshot of one (project, env) scope: keys, live
// pointers, masks, overrides and prompt mappings. Debug/export helper.
func (s *Store) Dump(ctx context.Context, projectID, env string) (*Snapshot, error) {
	snap := &Snapshot{ProjectID: projectID, Env: env}
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		if snap.Keys, err = tx.ListKeys(projectID); err != nil {
			return err
		}
		if snap.Published, err = tx.ListPublished(projectID, env); err != nil {
			return err
		}
		if snap.Masks, err = tx.ListMasks(projectID, env); err != nil {
			return err
		}
		for _, mask := range snap.Masks {
			overrides, err := tx.ListOverrides(projectID, env, mask.MaskID)
			if err != nil {
				return err
			}
			snap.Overrides = append(snap.Overrides, overrides...)
		}
		snap.PromptMappings, err = tx.ListPromptMappings(projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
