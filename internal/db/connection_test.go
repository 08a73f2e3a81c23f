package db

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_migrateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		dsn    string
		set    MigrationSet
		scheme string
	}{
		{"postgres scheme", "postgres://u:p@localhost:5432/db?sslmode=disable", MigrationsAuth, "pgx5"},
		{"postgresql scheme", "postgresql://u:p@localhost:5432/db", MigrationsProfile, "pgx5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := migrateURL(tt.dsn, tt.set)
			require.NoError(t, err)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, u.Scheme)
			assert.Equal(t, "schema_migrations_"+string(tt.set), u.Query().Get("x-migrations-table"))
		})
	}

	t.Run("keep other params", func(t *testing.T) {
		got, err := migrateURL("postgres://u:p@localhost/db?sslmode=disable", MigrationsAuth)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
	})
}

func Test_migrationSetsEmbedded(t *testing.T) {
	t.Parallel()

	for _, set := range []MigrationSet{MigrationsAuth, MigrationsProfile} {
		entries, err := migrations.ReadDir("migrations/" + string(set))
		require.NoError(t, err)
		assert.NotEmpty(t, entries, "set %s must have migrations", set)
	}
}
