package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namity/backend/internal/db"
	"github.com/namity/backend/internal/handlers"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/repository/postgres"
	"github.com/namity/backend/internal/server"
	"github.com/namity/backend/internal/service/auth"
	"github.com/namity/backend/internal/service/auth/tokencodec"
	"github.com/namity/backend/internal/verifier"
)

type ServerApp struct {
	server *server.Server
	pool   *pgxpool.Pool
	logger logger.Logger

	authService   *auth.AuthService
	purgeInterval time.Duration
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config. Err: %w", err)
	}

	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}
	logger = logger.With("service", "auth")

	signingKeys, err := keys.LoadSigningKeys(c.PrivateKeyPath, c.PublicKeyPath, c.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("error while loading signing keys. Err: %w", err)
	}
	codec, err := tokencodec.New(tokencodec.Config{Issuer: c.Issuer}, signingKeys)
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, db.MigrationsAuth)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	authService, err := auth.NewService(auth.Config{
		AccessTTL:  c.AccessTTL(),
		RefreshTTL: c.RefreshTTL(),
		Logger:     logger,
	}, codec, storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	router := handlers.NewAuthRouter(
		authService,
		verifier.New(codec, handlers.AccessCookieName),
		handlers.CookieConfig{Secure: c.CookieSecure},
		logger,
	)

	return &ServerApp{
		server: &server.Server{
			ListenAddr: c.ListenAddr,
			Handler:    router,
			Logger:     logger,
		},
		pool:          pool,
		logger:        logger,
		authService:   authService,
		purgeInterval: c.SessionPurgeInterval,
	}, nil
}

// Run serves requests and purges expired sessions until context cancelled
func (a *ServerApp) Run(ctx context.Context) error {
	defer a.pool.Close()

	purgeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	purgeDone := make(chan struct{})
	go func() {
		defer close(purgeDone)
		a.purgeSessions(purgeCtx)
	}()

	err := a.server.Run(ctx)
	cancel()
	<-purgeDone

	return err
}

func (a *ServerApp) purgeSessions(ctx context.Context) {
	if a.purgeInterval == 0 {
		return
	}

	ticker := time.NewTicker(a.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.authService.PurgeExpiredSessions(ctx)
			if err != nil {
				a.logger.Error("can't purge expired sessions", "error", err)
				continue
			}
			a.logger.Debug("expired sessions purged", "deleted", deleted)
		}
	}
}
