package configstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// bucketSpace is the resolution of the bucketing hash: weights are percentage
// points, scaled by 100 into a 0..9999 space.
const bucketSpace = 10000

// Resolve is the hot read path. It resolves the requested keys for
// (projectID, env), optionally under the experiment context maskID/unitID,
// and returns a structured result.
//
// Absence never raises: an unknown mask means "no experiment context", an
// unconfigured key lands in MissingKeys, and an assigned variant without an
// override for a key falls back to the published pointer. Only storage-layer
// failures return an error.
//
// Precedence per key is strict: variant override, then published pointer,
// then missing.
func (s *Store) Resolve(ctx context.Context, projectID, env string, keys []string, maskID, unitID string) (*ResolveResult, error) {
	start := time.Now()
	result := &ResolveResult{
		Values:      make(map[string]any),
		ValueIDs:    make(map[string]int64),
		MissingKeys: []string{},
	}

	err := s.withTx(ctx, func(tx Tx) error {
		var mask *MaskRecord
		if maskID != "" {
			var err error
			mask, err = tx.GetMask(projectID, env, maskID)
			if err != nil {
				return err
			}
			if mask != nil {
				result.ExperimentType = mask.ExperimentType
				result.AssignedVariant = assignVariant(mask, unitID)
			}
		}

		for _, key := range keys {
			rec, err := tx.GetKey(projectID, key)
			if err != nil {
				return err
			}
			if rec == nil {
				result.MissingKeys = append(result.MissingKeys, key)
				continue
			}

			valueID, found := int64(0), false
			if mask != nil && result.AssignedVariant != "" {
				valueID, found, err = tx.GetOverride(projectID, env, maskID, result.AssignedVariant, rec.ID)
				if err != nil {
					return err
				}
			}
			if !found {
				valueID, found, err = tx.GetPublished(projectID, env, rec.ID)
				if err != nil {
					return err
				}
			}
			if !found {
				result.MissingKeys = append(result.MissingKeys, key)
				continue
			}

			value, err := tx.GetValue(valueID)
			if err != nil {
				return err
			}
			if value == nil {
				// A pointer target must exist; treat a dangling
				// pointer as corruption, not absence.
				return NewStorageError("", "get_value",
					fmt.Errorf("dangling pointer for key %q: value %d not found", key, valueID))
			}

			var decoded any
			if err := json.Unmarshal(value.Value, &decoded); err != nil {
				return NewEncodingError(key, err)
			}
			result.Values[key] = decoded
			result.ValueIDs[key] = valueID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AssignedVariant != "" {
		s.metrics.RecordVariantAssignment(result.ExperimentType)
	}
	s.metrics.RecordResolution(projectID, env, len(result.Values), len(result.MissingKeys))
	s.metrics.ObserveOperation("resolve", time.Since(start))
	return result, nil
}

// assignVariant computes the deterministic variant for a caller unit.
//
// Non-A/B masks assign DefaultVariant unconditionally. A/B masks without a
// unit id assign the first declared variant (deterministic, coarse). With a
// unit id, the hash bucket is walked against the cumulative weights in
// declared order; a bucket past the cumulative sum (weights under 100) falls
// back to the last declared variant. Reordering equal-weight variants moves
// the boundary, so declaration order is part of the experiment definition.
func assignVariant(mask *MaskRecord, unitID string) string {
	if !mask.IsAB() {
		return DefaultVariant
	}
	dist := mask.Distribution
	if len(dist) == 0 {
		return DefaultVariant
	}
	if unitID == "" {
		return dist[0].Variant
	}

	bucket := bucketFor(mask.MaskID, mask.Salt, unitID)
	cumulative := 0
	for _, vw := range dist {
		cumulative += vw.Weight * 100
		if bucket < cumulative {
			return vw.Variant
		}
	}
	return dist[len(dist)-1].Variant
}

// bucketFor hashes (mask, salt, unit) into the 0..9999 bucket space. Pure
// function of its inputs; this is the load-bearing guarantee for sticky
// assignment across repeated calls.
func bucketFor(maskID, salt, unitID string) int {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", maskID, salt, unitID)))
	return int(binary.BigEndian.Uint32(sum[:4]) % bucketSpace)
}
