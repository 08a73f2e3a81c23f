package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/models"
)

type ProfileRepo struct {
	DB DBTX
}

const profileColumns = `user_id, slug, display_name, bio, avatar_key, created_at, updated_at`

const createProfile = `-- name: CreateProfile
INSERT INTO profiles (user_id, slug, display_name, bio, avatar_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + profileColumns

func (r *ProfileRepo) CreateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	rows, _ := r.DB.Query(ctx, createProfile, p.UserID, p.Slug, p.DisplayName, p.Bio, p.AvatarKey)
	return collectProfileWrite(rows)
}

const getProfile = `-- name: GetProfile
SELECT ` + profileColumns + ` FROM profiles
WHERE user_id = $1
`

func (r *ProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	rows, _ := r.DB.Query(ctx, getProfile, userID)
	return collectProfile(rows)
}

const getProfileBySlug = `-- name: GetProfileBySlug
SELECT ` + profileColumns + ` FROM profiles
WHERE slug = $1
`

func (r *ProfileRepo) GetProfileBySlug(ctx context.Context, slug string) (models.Profile, error) {
	rows, _ := r.DB.Query(ctx, getProfileBySlug, slug)
	return collectProfile(rows)
}

const updateProfile = `-- name: UpdateProfile
UPDATE profiles
SET slug = $2, display_name = $3, bio = $4, avatar_key = $5, updated_at = now()
WHERE user_id = $1
RETURNING ` + profileColumns

func (r *ProfileRepo) UpdateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	rows, _ := r.DB.Query(ctx, updateProfile, p.UserID, p.Slug, p.DisplayName, p.Bio, p.AvatarKey)
	return collectProfileWrite(rows)
}

func collectProfile(rows pgx.Rows) (models.Profile, error) {
	p, err := pgx.CollectOneRow(rows, rowToProfile)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrProfileNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

// Unique index on profiles.slug
const slugConstraint = "profiles_slug_uniq"

// Same as collectProfile but unique slug violation is reported as apperrors.ErrSlugTaken
func collectProfileWrite(rows pgx.Rows) (models.Profile, error) {
	p, err := collectProfile(rows)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == slugConstraint {
		return p, apperrors.ErrSlugTaken
	}

	return p, err
}

func rowToProfile(row pgx.CollectableRow) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.UserID, &p.Slug, &p.DisplayName, &p.Bio, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
