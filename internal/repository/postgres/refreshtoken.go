package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const sessionColumns = `id, user_id, jti, device_name, ip_address, user_agent, issued_at, last_used_at, expires_at`

const createSession = `-- name: Create Refresh Session
INSERT INTO refresh_tokens (user_id, jti, device_name, ip_address, user_agent, issued_at, last_used_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
RETURNING ` + sessionColumns

// Create session with new jti
// Empty meta values are stored as NULL
func (r *RefreshTokenRepo) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration, meta models.SessionMeta) (models.RefreshSession, error) {
	now := time.Now().UTC()

	rows, _ := r.DB.Query(ctx, createSession,
		userID,
		uuid.New(),
		nullable(meta.DeviceName),
		nullable(meta.IPAddress),
		nullable(meta.UserAgent),
		now,
		now.Add(ttl),
	)
	session, err := pgx.CollectOneRow(rows, rowToSession)
	if err != nil {
		return session, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

const getSession = `-- name: Get Refresh Session
SELECT ` + sessionColumns + `
FROM refresh_tokens
WHERE jti = $1 AND user_id = $2
`

// Get session
// It should return result even it expired already
func (r *RefreshTokenRepo) Get(ctx context.Context, jti uuid.UUID, userID uuid.UUID) (models.RefreshSession, error) {
	rows, _ := r.DB.Query(ctx, getSession, jti, userID)
	return collectSession(rows)
}

const getSessionForUpdate = getSession + `FOR UPDATE
`

// Get session and lock it until transaction ends
// Has sense only if repo is used in transaction
func (r *RefreshTokenRepo) GetForUpdate(ctx context.Context, jti uuid.UUID, userID uuid.UUID) (models.RefreshSession, error) {
	rows, _ := r.DB.Query(ctx, getSessionForUpdate, jti, userID)
	return collectSession(rows)
}

const revokeSession = `-- name: Revoke Refresh Session
DELETE FROM refresh_tokens
WHERE jti = $1
`

func (r *RefreshTokenRepo) Revoke(ctx context.Context, jti uuid.UUID) error {
	_, err := r.DB.Exec(ctx, revokeSession, jti)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpired = `-- name: Delete Expired Sessions
DELETE FROM refresh_tokens
WHERE expires_at <= $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpired, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectSession(rows pgx.Rows) (models.RefreshSession, error) {
	session, err := pgx.CollectOneRow(rows, rowToSession)

	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, pgx.ErrNoRows):
		return session, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return session, fmt.Errorf("db error: %w", err)
	}
}

func rowToSession(row pgx.CollectableRow) (models.RefreshSession, error) {
	var s models.RefreshSession
	err := row.Scan(&s.ID, &s.UserID, &s.JTI, &s.DeviceName, &s.IPAddress, &s.UserAgent, &s.IssuedAt, &s.LastUsedAt, &s.ExpiresAt)
	return s, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
