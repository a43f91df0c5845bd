package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/resona/api/internal/model"
)

// GetSettings returns the user's settings row, or an empty settings value if
// none exists yet.
func (s *Store) GetSettings(ctx context.Context, ownerID string) (*model.UserSettings, error) {
	var (
		settings model.UserSettings
		storage  sql.NullString
	)
	settings.OwnerID = ownerID

	err := s.db.QueryRowContext(ctx, `
		SELECT fal_api_key, minimax_api_key, replicate_api_key, storage_settings, platform_access
		FROM user_settings WHERE owner_id = ?`,
		ownerID,
	).Scan(&settings.FalAPIKey, &settings.MiniMaxAPIKey, &settings.ReplicateAPIKey,
		&storage, &settings.PlatformAccess)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &settings, nil
		}
		return nil, err
	}

	if storage.Valid && storage.String != "" {
		var st model.StorageSettings
		if err := json.Unmarshal([]byte(storage.String), &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal storage settings: %w", err)
		}
		settings.Storage = &st
	}
	return &settings, nil
}

// UpdateAPIKeys upserts per-provider credentials. Empty values keep the
// stored key; "-" clears it.
func (s *Store) UpdateAPIKeys(ctx context.Context, ownerID string, req *model.UpdateAPIKeysRequest) error {
	current, err := s.GetSettings(ctx, ownerID)
	if err != nil {
		return err
	}

	apply := func(stored, update string) string {
		switch update {
		case "":
			return stored
		case "-":
			return ""
		default:
			return update
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, fal_api_key, minimax_api_key, replicate_api_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			fal_api_key = excluded.fal_api_key,
			minimax_api_key = excluded.minimax_api_key,
			replicate_api_key = excluded.replicate_api_key`,
		ownerID,
		apply(current.FalAPIKey, req.FalAPIKey),
		apply(current.MiniMaxAPIKey, req.MiniMaxAPIKey),
		apply(current.ReplicateAPIKey, req.ReplicateAPIKey),
	)
	return err
}

// UpdateStorageSettings upserts the durable-storage configuration; nil clears it.
func (s *Store) UpdateStorageSettings(ctx context.Context, ownerID string, settings *model.StorageSettings) error {
	var stored interface{}
	if settings != nil {
		data, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal storage settings: %w", err)
		}
		stored = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, storage_settings) VALUES (?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET storage_settings = excluded.storage_settings`,
		ownerID, stored,
	)
	return err
}

// SetPlatformAccess records the billing gate outcome for a user. The flag is
// computed by the billing webhook flow, outside this service.
func (s *Store) SetPlatformAccess(ctx context.Context, ownerID string, access bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, platform_access) VALUES (?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET platform_access = excluded.platform_access`,
		ownerID, access,
	)
	return err
}

// HasPlatformAccess reports whether the user may submit jobs.
func (s *Store) HasPlatformAccess(ctx context.Context, ownerID string) (bool, error) {
	var access bool
	err := s.db.QueryRowContext(ctx,
		`SELECT platform_access FROM user_settings WHERE owner_id = ?`,
		ownerID,
	).Scan(&access)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return access, err
}
