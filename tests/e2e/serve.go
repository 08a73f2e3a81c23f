package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/namity/backend/internal/handlers"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/repository/postgres"
	"github.com/namity/backend/internal/service/auth"
	"github.com/namity/backend/internal/service/auth/tokencodec"
	"github.com/namity/backend/internal/service/profile"
	"github.com/namity/backend/internal/testutil"
	"github.com/namity/backend/internal/verifier"
)

const issuer = "namity-e2e"

type Servers struct {
	AuthURL    string
	ProfileURL string

	AuthService    *auth.AuthService
	ProfileService *profile.ProfileService
}

// Object store that keeps objects in memory
type MemObjects struct {
	Objects map[string][]byte
}

func (m *MemObjects) Put(_ context.Context, key string, _ string, data []byte) error {
	m.Objects[key] = data
	return nil
}

func (m *MemObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://avatars.test/" + key, nil
}

// Create db transaction and run both services with that connection (one connection cause one transaction)
// Auth service signs tokens with private key, profile service knows public key only
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, s Servers)) {
	signingKeys, err := keys.Generate("RS256")
	require.NoError(t, err)

	signer, err := tokencodec.New(tokencodec.Config{Issuer: issuer}, signingKeys)
	require.NoError(t, err)
	publicOnly, err := tokencodec.New(tokencodec.Config{Issuer: issuer}, keys.KeySet{Alg: signingKeys.Alg, Public: signingKeys.Public})
	require.NoError(t, err)

	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		log := logger.NewNoOpLogger()

		as, err := auth.NewService(auth.Config{Hasher: auth.BcryptHasher{Cost: 4}}, signer, storage)
		require.NoError(t, err, "auth service starting error")

		ps, err := profile.NewService(profile.Config{}, storage, &MemObjects{Objects: map[string][]byte{}})
		require.NoError(t, err, "profile service starting error")

		authSrv := httptest.NewServer(handlers.NewAuthRouter(as, verifier.New(signer, ""), handlers.CookieConfig{}, log))
		defer authSrv.Close()
		profileSrv := httptest.NewServer(handlers.NewProfileRouter(ps, verifier.New(publicOnly, ""), log))
		defer profileSrv.Close()

		fn(tx, Servers{
			AuthURL:        authSrv.URL,
			ProfileURL:     profileSrv.URL,
			AuthService:    as,
			ProfileService: ps,
		})
	})
}
