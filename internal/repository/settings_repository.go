package repository

import (
	"context"
	"errors"

	"llamachat/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns nil when the key is not stored.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*entities.SystemSetting, error) {
	var s entities.SystemSetting
	err := r.db.QueryRow(ctx,
		"SELECT key, value, description, updated_at FROM system_settings WHERE key = $1", key,
	).Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found is not strictly an error
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) GetAll(ctx context.Context) ([]entities.SystemSetting, error) {
	rows, err := r.db.Query(ctx, "SELECT key, value, description, updated_at FROM system_settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []entities.SystemSetting{}
	for rows.Next() {
		var s entities.SystemSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

// EnsureDefault inserts the setting only when the key is absent.
func (r *SettingsRepository) EnsureDefault(ctx context.Context, setting entities.SystemSetting) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO system_settings (key, value, description, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO NOTHING
	`, setting.Key, setting.Value, setting.Description)
	return err
}
