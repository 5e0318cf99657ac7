package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
)

// SettingsService reads system settings with typed fallbacks.
type SettingsService struct {
	repo interfaces.SettingsRepository
}

func NewSettingsService(repo interfaces.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// SeedDefaults stores every default setting that is not present yet.
func (s *SettingsService) SeedDefaults(ctx context.Context) error {
	for _, setting := range entities.DefaultSettings {
		if err := s.repo.EnsureDefault(ctx, setting); err != nil {
			return fmt.Errorf("seed setting %s: %w", setting.Key, err)
		}
	}
	return nil
}

// String returns the stored value, or def when the key is missing.
func (s *SettingsService) String(ctx context.Context, key, def string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	if setting == nil {
		return def, nil
	}
	return setting.Value, nil
}

// Int parses the stored value; missing or unparsable values yield def.
func (s *SettingsService) Int(ctx context.Context, key string, def int) (int, error) {
	raw, err := s.String(ctx, key, "")
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil {
		return def, nil
	}
	return n, nil
}

// Bool treats only a case-insensitive "true" as true.
func (s *SettingsService) Bool(ctx context.Context, key string, def bool) (bool, error) {
	raw, err := s.String(ctx, key, strconv.FormatBool(def))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(raw), "true"), nil
}

// DefaultModel resolves the configured default model, falling back to the built-in one.
func (s *SettingsService) DefaultModel(ctx context.Context) (string, error) {
	model, err := s.String(ctx, entities.SettingDefaultModel, entities.FallbackModel)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(model) == "" {
		return entities.FallbackModel, nil
	}
	return model, nil
}

func (s *SettingsService) GetAll(ctx context.Context) ([]entities.SystemSetting, error) {
	return s.repo.GetAll(ctx)
}

// Update changes an existing setting. Unknown keys are rejected.
func (s *SettingsService) Update(ctx context.Context, key, value string) (*entities.SystemSetting, error) {
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSettingNotFound
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return nil, fmt.Errorf("update setting %s: %w", key, err)
	}
	return s.repo.Get(ctx, key)
}
