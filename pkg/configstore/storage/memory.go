package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/configstore"
)

// MemoryStorage implements configstore.Storage using in-memory maps. It is
// intended for tests and ephemeral deployments.
//
// Transactions run against a deep copy of the state; the copy replaces the
// live state only on a successful commit, which gives the same all-or-nothing
// semantics as the SQLite backend.
type MemoryStorage struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: newMemoryState()}
}

// WithTx runs fn against a private copy of the state and swaps it in on
// success. The mutex is held for the whole transaction.
func (s *MemoryStorage) WithTx(ctx context.Context, fn func(tx configstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return configstore.NewStorageError("memory", "begin", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&memoryTx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Close releases nothing; it exists to satisfy configstore.Storage.
func (s *MemoryStorage) Close() error {
	return nil
}

type publishedRow struct {
	valueID   int64
	updatedAt time.Time
}

type overrideRow struct {
	valueID   int64
	updatedAt time.Time
}

type memoryState struct {
	nextKeyID   int64
	nextValueID int64
	nextMaskID  int64

	keys      map[int64]*configstore.KeyRecord
	keyIndex  map[string]int64                            // projectID + "\x00" + key
	values    map[int64]*configstore.ValueRecord
	published map[string]*publishedRow                    // projectID|env|keyID
	masks     map[string]*configstore.MaskRecord          // projectID|env|maskID
	overrides map[string]*overrideRow                     // projectID|env|maskID|variant|keyID
	mappings  map[string]*configstore.PromptMappingRecord // projectID|promptName
}

func newMemoryState() *memoryState {
	return &memoryState{
		nextKeyID:   1,
		nextValueID: 1,
		nextMaskID:  1,
		keys:        make(map[int64]*configstore.KeyRecord),
		keyIndex:    make(map[string]int64),
		values:      make(map[int64]*configstore.ValueRecord),
		published:   make(map[string]*publishedRow),
		masks:       make(map[string]*configstore.MaskRecord),
		overrides:   make(map[string]*overrideRow),
		mappings:    make(map[string]*configstore.PromptMappingRecord),
	}
}

func (st *memoryState) clone() *memoryState {
	next := &memoryState{
		nextKeyID:   st.nextKeyID,
		nextValueID: st.nextValueID,
		nextMaskID:  st.nextMaskID,
		keys:        make(map[int64]*configstore.KeyRecord, len(st.keys)),
		keyIndex:    make(map[string]int64, len(st.keyIndex)),
		values:      make(map[int64]*configstore.ValueRecord, len(st.values)),
		published:   make(map[string]*publishedRow, len(st.published)),
		masks:       make(map[string]*configstore.MaskRecord, len(st.masks)),
		overrides:   make(map[string]*overrideRow, len(st.overrides)),
		mappings:    make(map[string]*configstore.PromptMappingRecord, len(st.mappings)),
	}
	for id, rec := range st.keys {
		next.keys[id] = copyKey(rec)
	}
	for k, v := range st.keyIndex {
		next.keyIndex[k] = v
	}
	for id, rec := range st.values {
		next.values[id] = copyValue(rec)
	}
	for k, row := range st.published {
		cp := *row
		next.published[k] = &cp
	}
	for k, rec := range st.masks {
		next.masks[k] = copyMask(rec)
	}
	for k, row := range st.overrides {
		cp := *row
		next.overrides[k] = &cp
	}
	for k, rec := range st.mappings {
		cp := *rec
		next.mappings[k] = &cp
	}
	return next
}

func copyKey(rec *configstore.KeyRecord) *configstore.KeyRecord {
	cp := *rec
	cp.Source = append(json.RawMessage(nil), rec.Source...)
	return &cp
}

func copyValue(rec *configstore.ValueRecord) *configstore.ValueRecord {
	cp := *rec
	cp.Value = append(json.RawMessage(nil), rec.Value...)
	return &cp
}

func copyMask(rec *configstore.MaskRecord) *configstore.MaskRecord {
	cp := *rec
	cp.Distribution = append(configstore.Distribution(nil), rec.Distribution...)
	if rec.Distribution == nil {
		cp.Distribution = nil
	}
	return &cp
}

func keyIndexKey(projectID, key string) string {
	return projectID + "\x00" + key
}

func publishedKey(projectID, env string, keyID int64) string {
	return fmt.Sprintf("%s\x00%s\x00%d", projectID, env, keyID)
}

func maskKey(projectID, env, maskID string) string {
	return projectID + "\x00" + env + "\x00" + maskID
}

func overrideKey(projectID, env, maskID, variant string, keyID int64) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%d", projectID, env, maskID, variant, keyID)
}

func mappingKey(projectID, promptName string) string {
	return projectID + "\x00" + promptName
}

// memoryTx implements configstore.Tx over one cloned state.
type memoryTx struct {
	st *memoryState
}

func (t *memoryTx) EnsureKey(projectID, key, keyType string, source json.RawMessage) (int64, error) {
	now := time.Now()
	if id, ok := t.st.keyIndex[keyIndexKey(projectID, key)]; ok {
		rec := t.st.keys[id]
		if rec.Type == "" {
			rec.Type = keyType
		}
		if rec.Source == nil && source != nil {
			rec.Source = append(json.RawMessage(nil), source...)
		}
		rec.UpdatedAt = now
		return id, nil
	}

	id := t.st.nextKeyID
	t.st.nextKeyID++
	rec := &configstore.KeyRecord{
		ID:        id,
		ProjectID: projectID,
		Key:       key,
		Type:      keyType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if source != nil {
		rec.Source = append(json.RawMessage(nil), source...)
	}
	t.st.keys[id] = rec
	t.st.keyIndex[keyIndexKey(projectID, key)] = id
	return id, nil
}

func (t *memoryTx) GetKey(projectID, key string) (*configstore.KeyRecord, error) {
	id, ok := t.st.keyIndex[keyIndexKey(projectID, key)]
	if !ok {
		return nil, nil
	}
	return copyKey(t.st.keys[id]), nil
}

func (t *memoryTx) ListKeys(projectID string) ([]*configstore.KeyRecord, error) {
	var out []*configstore.KeyRecord
	for _, rec := range t.st.keys {
		if rec.ProjectID == projectID {
			out = append(out, copyKey(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) AppendValue(projectID string, keyID int64, value json.RawMessage, createdBy string) (int64, error) {
	id := t.st.nextValueID
	t.st.nextValueID++
	t.st.values[id] = &configstore.ValueRecord{
		ID:        id,
		ProjectID: projectID,
		KeyID:     keyID,
		Value:     append(json.RawMessage(nil), value...),
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}
	return id, nil
}

func (t *memoryTx) GetValue(valueID int64) (*configstore.ValueRecord, error) {
	rec, ok := t.st.values[valueID]
	if !ok {
		return nil, nil
	}
	return copyValue(rec), nil
}

func (t *memoryTx) ValueHistory(projectID string, keyID int64) ([]*configstore.ValueRecord, error) {
	var out []*configstore.ValueRecord
	for _, rec := range t.st.values {
		if rec.ProjectID == projectID && rec.KeyID == keyID {
			out = append(out, copyValue(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) SetPublished(projectID, env string, keyID, valueID int64) error {
	t.st.published[publishedKey(projectID, env, keyID)] = &publishedRow{
		valueID:   valueID,
		updatedAt: time.Now(),
	}
	return nil
}

func (t *memoryTx) GetPublished(projectID, env string, keyID int64) (int64, bool, error) {
	row, ok := t.st.published[publishedKey(projectID, env, keyID)]
	if !ok {
		return 0, false, nil
	}
	return row.valueID, true, nil
}

func (t *memoryTx) ListPublished(projectID, env string) ([]*configstore.PublishedEntry, error) {
	var out []*configstore.PublishedEntry
	for _, key := range t.st.keys {
		if key.ProjectID != projectID {
			continue
		}
		row, ok := t.st.published[publishedKey(projectID, env, key.ID)]
		if !ok {
			continue
		}
		value := t.st.values[row.valueID]
		if value == nil {
			return nil, configstore.NewStorageError("memory", "list_published",
				fmt.Errorf("dangling pointer for key %q: value %d not found", key.Key, row.valueID))
		}
		out = append(out, &configstore.PublishedEntry{
			ProjectID: projectID,
			Env:       env,
			Key:       key.Key,
			KeyID:     key.ID,
			ValueID:   row.valueID,
			Value:     append(json.RawMessage(nil), value.Value...),
			UpdatedAt: row.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (t *memoryTx) UpsertMask(rec *configstore.MaskRecord) error {
	now := time.Now()
	cp := copyMask(rec)
	if existing, ok := t.st.masks[maskKey(rec.ProjectID, rec.Env, rec.MaskID)]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = t.st.nextMaskID
		t.st.nextMaskID++
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
	}
	cp.UpdatedAt = now
	t.st.masks[maskKey(rec.ProjectID, rec.Env, rec.MaskID)] = cp
	return nil
}

func (t *memoryTx) GetMask(projectID, env, maskID string) (*configstore.MaskRecord, error) {
	rec, ok := t.st.masks[maskKey(projectID, env, maskID)]
	if !ok {
		return nil, nil
	}
	return copyMask(rec), nil
}

func (t *memoryTx) ListMasks(projectID, env string) ([]*configstore.MaskRecord, error) {
	var out []*configstore.MaskRecord
	for _, rec := range t.st.masks {
		if rec.ProjectID == projectID && rec.Env == env {
			out = append(out, copyMask(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaskID < out[j].MaskID })
	return out, nil
}

func (t *memoryTx) SetOverride(projectID, env, maskID, variant string, keyID, valueID int64) error {
	t.st.overrides[overrideKey(projectID, env, maskID, variant, keyID)] = &overrideRow{
		valueID:   valueID,
		updatedAt: time.Now(),
	}
	return nil
}

func (t *memoryTx) GetOverride(projectID, env, maskID, variant string, keyID int64) (int64, bool, error) {
	row, ok := t.st.overrides[overrideKey(projectID, env, maskID, variant, keyID)]
	if !ok {
		return 0, false, nil
	}
	return row.valueID, true, nil
}

func (t *memoryTx) ListOverrides(projectID, env, maskID string) ([]*configstore.OverrideEntry, error) {
	var out []*configstore.OverrideEntry
	for _, key := range t.st.keys {
		if key.ProjectID != projectID {
			continue
		}
		for _, variant := range t.variantsFor(projectID, env, maskID, key.ID) {
			row := t.st.overrides[overrideKey(projectID, env, maskID, variant, key.ID)]
			value := t.st.values[row.valueID]
			if value == nil {
				return nil, configstore.NewStorageError("memory", "list_overrides",
					fmt.Errorf("dangling pointer for key %q: value %d not found", key.Key, row.valueID))
			}
			out = append(out, &configstore.OverrideEntry{
				ProjectID: projectID,
				Env:       env,
				MaskID:    maskID,
				Variant:   variant,
				Key:       key.Key,
				KeyID:     key.ID,
				ValueID:   row.valueID,
				Value:     append(json.RawMessage(nil), value.Value...),
				UpdatedAt: row.updatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Variant != out[j].Variant {
			return out[i].Variant < out[j].Variant
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// variantsFor collects the variants that have an override for one key.
func (t *memoryTx) variantsFor(projectID, env, maskID string, keyID int64) []string {
	prefix := projectID + "\x00" + env + "\x00" + maskID + "\x00"
	suffix := fmt.Sprintf("\x00%d", keyID)
	var variants []string
	for k := range t.st.overrides {
		if len(k) > len(prefix)+len(suffix) && k[:len(prefix)] == prefix && k[len(k)-len(suffix):] == suffix {
			variants = append(variants, k[len(prefix):len(k)-len(suffix)])
		}
	}
	sort.Strings(variants)
	return variants
}

func (t *memoryTx) UpsertPromptMapping(rec *configstore.PromptMappingRecord) error {
	now := time.Now()
	cp := *rec
	if existing, ok := t.st.mappings[mappingKey(rec.ProjectID, rec.PromptName)]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	t.st.mappings[mappingKey(rec.ProjectID, rec.PromptName)] = &cp
	return nil
}

func (t *memoryTx) GetPromptMapping(projectID, promptName string) (*configstore.PromptMappingRecord, error) {
	rec, ok := t.st.mappings[mappingKey(projectID, promptName)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (t *memoryTx) ListPromptMappings(projectID string) ([]*configstore.PromptMappingRecord, error) {
	var out []*configstore.PromptMappingRecord
	for _, rec := range t.st.mappings {
		if rec.ProjectID == projectID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PromptName < out[j].PromptName })
	return out, nil
}

func (t *memoryTx) UnreferencedValueIDs(olderThan time.Time, keepLast int) ([]int64, error) {
	referenced := make(map[int64]bool)
	for _, row := range t.st.published {
		referenced[row.valueID] = true
	}
	for _, row := range t.st.overrides {
		referenced[row.valueID] = true
	}

	// The keepLast most recent rows per key are protected regardless of age.
	byKey := make(map[int64][]int64)
	for id, rec := range t.st.values {
		byKey[rec.KeyID] = append(byKey[rec.KeyID], id)
	}
	protected := make(map[int64]bool)
	for _, ids := range byKey {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
		for i := 0; i < keepLast && i < len(ids); i++ {
			protected[ids[i]] = true
		}
	}

	var out []int64
	for id, rec := range t.st.values {
		if rec.CreatedAt.Before(olderThan) && !referenced[id] && !protected[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *memoryTx) ValuesByID(ids []int64) ([]*configstore.ValueRecord, error) {
	var out []*configstore.ValueRecord
	for _, id := range ids {
		if rec, ok := t.st.values[id]; ok {
			out = append(out, copyValue(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) DeleteValues(ids []int64) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := t.st.values[id]; ok {
			delete(t.st.values, id)
			deleted++
		}
	}
	return deleted, nil
}

func (t *memoryTx) CountValues(projectID string) (int64, error) {
	var count int64
	for _, rec := range t.st.values {
		if rec.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}
