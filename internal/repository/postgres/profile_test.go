package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/db"
	"github.com/namity/backend/internal/models"
	"github.com/namity/backend/internal/testutil"
)

func Test_ProfileRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t, db.MigrationsProfile)
	t.Cleanup(pg.Terminate)

	ptr := func(s string) *string { return &s }

	t.Run("create profile ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			userID := uuid.New()

			got, err := r.CreateProfile(t.Context(), models.Profile{UserID: userID, Slug: "alice", Bio: ptr("hi")})

			require.NoError(t, err)
			assert.Equal(t, userID, got.UserID)
			assert.Equal(t, "alice", got.Slug)
			assert.Nil(t, got.DisplayName)
			assert.Equal(t, "hi", *got.Bio)
			assert.False(t, got.CreatedAt.IsZero())
		})
	})

	t.Run("create profile with taken slug", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			_, err := r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "alice"})
			require.NoError(t, err)

			_, err = r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "alice"})

			require.ErrorIs(t, err, apperrors.ErrSlugTaken)
		})
	})

	t.Run("create second profile for same user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			userID := uuid.New()
			_, err := r.CreateProfile(t.Context(), models.Profile{UserID: userID, Slug: "first"})
			require.NoError(t, err)

			_, err = r.CreateProfile(t.Context(), models.Profile{UserID: userID, Slug: "second"})

			require.Error(t, err)
			assert.NotErrorIs(t, err, apperrors.ErrSlugTaken, "only slug violation is reported as taken slug")
		})
	})

	t.Run("get profile by user id and slug", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			created, err := r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "bob"})
			require.NoError(t, err)

			byID, err := r.GetProfile(t.Context(), created.UserID)
			require.NoError(t, err)
			bySlug, err := r.GetProfileBySlug(t.Context(), "bob")
			require.NoError(t, err)

			assert.Equal(t, created, byID)
			assert.Equal(t, created, bySlug)
		})
	})

	t.Run("get profile not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}

			_, err := r.GetProfile(t.Context(), uuid.New())
			assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)

			_, err = r.GetProfileBySlug(t.Context(), "nobody")
			assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
		})
	})

	t.Run("update profile", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			created, err := r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "carol", Bio: ptr("old")})
			require.NoError(t, err)

			created.Slug = "carol-new"
			created.DisplayName = ptr("Carol")
			created.Bio = nil
			created.AvatarKey = ptr("key.png")
			got, err := r.UpdateProfile(t.Context(), created)

			require.NoError(t, err)
			assert.Equal(t, "carol-new", got.Slug)
			assert.Equal(t, "Carol", *got.DisplayName)
			assert.Nil(t, got.Bio)
			assert.Equal(t, "key.png", *got.AvatarKey)
		})
	})

	t.Run("update profile to taken slug", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}
			_, err := r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "dave"})
			require.NoError(t, err)
			second, err := r.CreateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "erin"})
			require.NoError(t, err)

			second.Slug = "dave"
			_, err = r.UpdateProfile(t.Context(), second)

			require.ErrorIs(t, err, apperrors.ErrSlugTaken)
		})
	})

	t.Run("update not existed profile", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ProfileRepo{DB: tx}

			_, err := r.UpdateProfile(t.Context(), models.Profile{UserID: uuid.New(), Slug: "frank"})

			assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
		})
	})
}
