package promptbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/configstore"
)

// VersionService is the external prompt-versioning collaborator. The bridge
// only needs its two version operations; anything implementing them can back
// the bridge, including MockService for tests.
type VersionService interface {
	// CreatePromptVersion records a new version of a prompt and returns
	// the external version id.
	CreatePromptVersion(ctx context.Context, promptName string, value json.RawMessage, commit string) (string, error)

	// GetPromptVersion fetches the content of a previously created
	// version.
	GetPromptVersion(ctx context.Context, promptName, versionID string) (json.RawMessage, error)
}

// Bridge links prompt-valued configuration keys to an external
// prompt-versioning identity. The store persists the mappings; the bridge
// owns the conversation with the external service.
type Bridge struct {
	store   *configstore.Store
	service VersionService
	logger  *slog.Logger
}

// New creates a bridge over the given store and version service.
func New(store *configstore.Store, service VersionService) *Bridge {
	return &Bridge{
		store:   store,
		service: service,
		logger:  slog.Default().With("component", "promptbridge"),
	}
}

// RegisterPrompt links a prompt name to a configuration key.
func (b *Bridge) RegisterPrompt(ctx context.Context, projectID, promptName, configKey, externalPromptID string) error {
	return b.store.RegisterPromptMapping(ctx, projectID, configstore.PromptMappingSpec{
		PromptName:       promptName,
		ConfigKey:        configKey,
		ExternalPromptID: externalPromptID,
	})
}

// SyncPublished pushes the currently published value of every mapped prompt
// to the version service and records the returned version ids. Mappings
// whose key has no publication in env are skipped. Returns the number of
// prompts synced.
func (b *Bridge) SyncPublished(ctx context.Context, projectID, env, commit string) (int, error) {
	mappings, err := b.store.ListPromptMappings(ctx, projectID)
	if err != nil {
		return 0, err
	}
	published, err := b.store.ListPublished(ctx, projectID, env)
	if err != nil {
		return 0, err
	}
	byKey := make(map[string]*configstore.PublishedEntry, len(published))
	for _, entry := range published {
		byKey[entry.Key] = entry
	}

	synced := 0
	for _, mapping := range mappings {
		entry, ok := byKey[mapping.ConfigKey]
		if !ok {
			continue
		}

		versionID, err := b.service.CreatePromptVersion(ctx, mapping.PromptName, entry.Value, commit)
		if err != nil {
			return synced, fmt.Errorf("create prompt version for %q: %w", mapping.PromptName, err)
		}
		if err := b.store.RegisterPromptMapping(ctx, projectID, configstore.PromptMappingSpec{
			PromptName:              mapping.PromptName,
			LatestCommit:            commit,
			LatestExternalVersionID: versionID,
		}); err != nil {
			return synced, err
		}
		synced++
	}

	b.logger.Info("synced published prompts",
		"project_id", projectID,
		"env", env,
		"synced", synced,
	)
	return synced, nil
}

// CommitExperimentVariant promotes an experiment variant's override value
// for a mapped prompt: the override becomes the published value of the
// prompt's key, a new external version is created, and the mapping records
// it. Returns the external version id.
//
// Preconditions are surfaced as named errors: the prompt must have a
// registered mapping (ErrNoMappingForPrompt), the mapping's key must exist
// (ErrNoKeyForPrompt), and the variant must carry an override for that key
// (ErrNoOverrideForPrompt).
func (b *Bridge) CommitExperimentVariant(ctx context.Context, projectID, env, maskID, variant, promptName, commit string) (string, error) {
	mapping, err := b.store.GetPromptMapping(ctx, projectID, promptName)
	if err != nil {
		return "", err
	}
	if mapping == nil {
		return "", newPreconditionError(ConditionNoMapping, projectID, promptName)
	}

	key, err := b.store.FindKeyByPromptName(ctx, projectID, promptName)
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", newPreconditionError(ConditionNoKey, projectID, promptName)
	}

	override, err := b.store.GetExperimentPromptValue(ctx, projectID, env, maskID, variant, promptName)
	if err != nil {
		return "", err
	}
	if override == nil {
		return "", newPreconditionError(ConditionNoOverride, projectID, promptName)
	}

	versionID, err := b.service.CreatePromptVersion(ctx, promptName, override.Value, commit)
	if err != nil {
		return "", fmt.Errorf("create prompt version for %q: %w", promptName, err)
	}

	createdBy := fmt.Sprintf("experiment:%s/%s", maskID, variant)
	if _, err := b.store.PublishValue(ctx, projectID, env, key.Key, override.Value, createdBy); err != nil {
		return "", err
	}
	if err := b.store.RegisterPromptMapping(ctx, projectID, configstore.PromptMappingSpec{
		PromptName:              promptName,
		LatestCommit:            commit,
		LatestExternalVersionID: versionID,
	}); err != nil {
		return "", err
	}

	b.logger.Info("committed experiment variant",
		"project_id", projectID,
		"env", env,
		"mask_id", maskID,
		"variant", variant,
		"prompt", promptName,
		"version_id", versionID,
	)
	return versionID, nil
}
