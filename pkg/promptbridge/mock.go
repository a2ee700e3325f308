package promptbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockService is an in-memory VersionService for tests and local
// development. Version ids are sequential per prompt ("v1", "v2", ...).
type MockService struct {
	mu       sync.Mutex
	versions map[string]map[string]json.RawMessage // promptName -> versionID -> value
	counters map[string]int
}

// NewMockService creates an empty mock version service.
func NewMockService() *MockService {
	return &MockService{
		versions: make(map[string]map[string]json.RawMessage),
		counters: make(map[string]int),
	}
}

// CreatePromptVersion implements VersionService.
func (m *MockService) CreatePromptVersion(ctx context.Context, promptName string, value json.RawMessage, commit string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[promptName]++
	versionID := fmt.Sprintf("v%d", m.counters[promptName])
	if m.versions[promptName] == nil {
		m.versions[promptName] = make(map[string]json.RawMessage)
	}
	m.versions[promptName][versionID] = append(json.RawMessage(nil), value...)
	return versionID, nil
}

// GetPromptVersion implements VersionService.
func (m *MockService) GetPromptVersion(ctx context.Context, promptName, versionID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.versions[promptName][versionID]
	if !ok {
		return nil, fmt.Errorf("prompt version %s/%s not found", promptName, versionID)
	}
	return append(json.RawMessage(nil), value...), nil
}

// VersionCount returns the number of versions recorded for a prompt.
func (m *MockService) VersionCount(promptName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[promptName]
}
