package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/repository"
	"github.com/namity/backend/internal/testutil"
)

func Test_Storage_InTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("commit on success", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.User().CreateUser(t.Context(), "commit@x.com", "hash")
				return err
			})
			require.NoError(t, err)

			_, err = s.User().GetUserByEmail(t.Context(), "commit@x.com")
			assert.NoError(t, err, "user created in committed transaction must be visible")
		})
	})

	t.Run("rollback on error", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			boom := errors.New("boom")

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.User().CreateUser(t.Context(), "rollback@x.com", "hash")
				require.NoError(t, err)
				return boom
			})
			require.ErrorIs(t, err, boom)

			_, err = s.User().GetUserByEmail(t.Context(), "rollback@x.com")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "changes must be rolled back")
		})
	})
}
