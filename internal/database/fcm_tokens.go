package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// UpsertFCMToken registers a device token, moving it to userID if another user held it
func (s *Store) UpsertFCMToken(ctx context.Context, t *models.FCMToken) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_type = EXCLUDED.device_type,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	row := s.DB.QueryRowxContext(ctx, query, t.UserID, t.Token, t.DeviceType, now)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return classify(err, "upsert fcm token")
	}
	return nil
}

// GetTokensByRole returns device tokens of every active user with the role
func (s *Store) GetTokensByRole(ctx context.Context, role string) ([]string, error) {
	tokens := []string{}
	query := `
		SELECT t.token FROM fcm_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.role = $1 AND u.active = TRUE
	`
	if err := s.DB.SelectContext(ctx, &tokens, query, role); err != nil {
		return nil, fmt.Errorf("failed to get fcm tokens: %w", err)
	}
	return tokens, nil
}

// DeleteFCMTokens removes device tokens push delivery reported as unregistered
func (s *Store) DeleteFCMTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM fcm_tokens WHERE token = ANY($1)`, pq.Array(tokens)); err != nil {
		return fmt.Errorf("failed to delete fcm tokens: %w", err)
	}
	return nil
}
