package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations
var migrations embed.FS

// Migration set: every service owns its schema and keeps its own version table
type MigrationSet string

const (
	MigrationsAuth    MigrationSet = "auth"
	MigrationsProfile MigrationSet = "profile"
)

// Run embedded migrations of the set
// Check the example at https://github.com/golang-migrate/migrate/blob/v4.18.1/source/iofs/example_test.go
// dsn: database source name in format postgres://...
func Migrate(dsn string, set MigrationSet) error {
	source, err := iofs.New(migrations, "migrations/"+string(set))
	if err != nil {
		return fmt.Errorf("unknown migration set %q. Err: %w", set, err)
	}

	migrateDSN, err := migrateURL(dsn, set)
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, migrateDSN)
	if err != nil {
		return fmt.Errorf("error while preparing migrator. Err: %w", err)
	}
	defer migrator.Close() // nolint:errcheck

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error while applying %s migrations. Err: %w", set, err)
	}

	return nil
}

// golang-migrate expects dsn in format 'pgx5://...' only, make it happy with 'postgres://...'
// Every set gets own version table so sets may share one database
func migrateURL(dsn string, set MigrationSet) (string, error) {
	dsn = strings.NewReplacer(
		"postgres://", "pgx5://",
		"postgresql://", "pgx5://",
	).Replace(dsn)

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database dsn. Err: %w", err)
	}

	q := u.Query()
	q.Set("x-migrations-table", "schema_migrations_"+string(set))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cant initialize connection pool. Err: %w", err)
	}

	return pool, err
}

func ConnectAndMigrate(ctx context.Context, dsn string, sets ...MigrationSet) (*pgxpool.Pool, error) {
	for _, set := range sets {
		if err := Migrate(dsn, set); err != nil {
			return nil, err
		}
	}

	return Connect(ctx, dsn)
}
