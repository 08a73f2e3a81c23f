package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/models"
)

type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Profile() ProfileRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, hashedPassword string) (models.User, error)

	// Get user by its id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace user password hash
	// If user not found must return apperrors.ErrUserNotFound
	SetPassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

// Refresh token registry: one row per issued refresh token
type RefreshTokenRepo interface {
	// Create session with fresh unique jti that expires after ttl
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration, meta models.SessionMeta) (models.RefreshSession, error)

	// Get session by jti and owner
	// If not found must return apperrors.ErrRefreshTokenNotFound; expired sessions are returned as is
	Get(ctx context.Context, jti uuid.UUID, userID uuid.UUID) (models.RefreshSession, error)

	// Same as Get but lock the row until transaction ends
	// Concurrent callers wait, and see the row gone if the first one revoked it
	GetForUpdate(ctx context.Context, jti uuid.UUID, userID uuid.UUID) (models.RefreshSession, error)

	// Delete session by jti
	// Idempotent: not existed session is not an error
	Revoke(ctx context.Context, jti uuid.UUID) error

	// Delete sessions expired before the moment, return how many were deleted
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ProfileRepo interface {
	// Create profile
	// If slug is taken has to return apperrors.ErrSlugTaken
	CreateProfile(ctx context.Context, p models.Profile) (models.Profile, error)

	// If profile not found must return apperrors.ErrProfileNotFound
	GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	GetProfileBySlug(ctx context.Context, slug string) (models.Profile, error)

	// Save all mutable fields of the profile
	// If slug is taken has to return apperrors.ErrSlugTaken
	UpdateProfile(ctx context.Context, p models.Profile) (models.Profile, error)
}
