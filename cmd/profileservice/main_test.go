package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namity/backend/internal/db"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t, db.MigrationsProfile)
	t.Cleanup(pg.Terminate)

	dir := t.TempDir()
	ks, err := keys.Generate("ES256")
	require.NoError(t, err)
	_, publicPEM, err := keys.EncodePEM(ks)
	require.NoError(t, err)
	publicPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0o600))

	noenv := func(string) string { return "" }
	getwd := func() (string, error) { return dir, nil }

	port, err := testutil.RandomPort()
	require.NoError(t, err, "failed to get random port to start server")
	listenAddr := fmt.Sprintf("localhost:%d", port)

	t.Run("stop with signal", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		// Storage is not reachable: service starts anyway
		err := run(ctx, noenv, getwd, []string{
			"--address", listenAddr,
			"--log-level", "debug",
			"--database", pg.DSN,
			"--public-key", publicPath,
			"--algorithm", "ES256",
			"--s3-endpoint", "http://127.0.0.1:1",
			"--s3-access-key", "minio",
			"--s3-secret-key", "minio-secret",
		})

		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("fail without public key", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		t.Cleanup(cancel)

		err := run(ctx, noenv, getwd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
		})

		require.Error(t, err)
	})

	t.Run("fail on missing key file", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		t.Cleanup(cancel)

		err := run(ctx, noenv, getwd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--public-key", filepath.Join(dir, "missing.pem"),
		})

		require.Error(t, err)
	})

	t.Run("fail on unreachable redis", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		t.Cleanup(cancel)

		err := run(ctx, noenv, getwd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--public-key", publicPath,
			"--algorithm", "ES256",
			"--s3-endpoint", "http://127.0.0.1:1",
			"--redis", "redis://127.0.0.1:1/0",
		})

		require.ErrorContains(t, err, "redis")
	})
}
