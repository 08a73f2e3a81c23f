package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namity/backend/internal/cache"
	"github.com/namity/backend/internal/db"
	"github.com/namity/backend/internal/handlers"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/objectstore"
	"github.com/namity/backend/internal/repository/postgres"
	"github.com/namity/backend/internal/server"
	"github.com/namity/backend/internal/service/auth/tokencodec"
	"github.com/namity/backend/internal/service/profile"
	"github.com/namity/backend/internal/verifier"
)

// Bucket check must not block startup for long: storage could come up later
const ensureBucketTimeout = 5 * time.Second

type ServerApp struct {
	server *server.Server
	pool   *pgxpool.Pool
	cache  *cache.ProfileCache
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config. Err: %w", err)
	}

	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}
	logger = logger.With("service", "profile")

	publicKey, err := keys.LoadVerificationKey(c.PublicKeyPath, c.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("error while loading public key. Err: %w", err)
	}
	codec, err := tokencodec.New(tokencodec.Config{Issuer: c.Issuer}, publicKey)
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	objects, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:       c.S3Endpoint,
		PublicEndpoint: c.S3PublicEndpoint,
		Region:         c.S3Region,
		AccessKey:      c.S3AccessKey,
		SecretKey:      c.S3SecretKey,
		Bucket:         c.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating object store. Err: %w", err)
	}

	bucketCtx, cancel := context.WithTimeout(ctx, ensureBucketTimeout)
	if err := objects.EnsureBucket(bucketCtx); err != nil {
		logger.Warn("can't ensure avatar bucket exists", "bucket", c.S3Bucket, "error", err)
	}
	cancel()

	var profileCache *cache.ProfileCache
	serviceCfg := profile.Config{
		AvatarURLTTL: c.AvatarURLTTL,
		Logger:       logger,
	}
	if c.RedisURL != "" {
		profileCache, err = cache.Connect(ctx, c.RedisURL, c.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		serviceCfg.Cache = profileCache
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, db.MigrationsProfile)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	profileService, err := profile.NewService(serviceCfg, postgres.NewStorage(pool), objects)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating profile service. Err: %w", err)
	}

	router := handlers.NewProfileRouter(
		profileService,
		verifier.New(codec, handlers.AccessCookieName),
		logger,
	)

	return &ServerApp{
		server: &server.Server{
			ListenAddr: c.ListenAddr,
			Handler:    router,
			Logger:     logger,
		},
		pool:  pool,
		cache: profileCache,
	}, nil
}

func (a *ServerApp) Run(ctx context.Context) error {
	defer a.pool.Close()
	if a.cache != nil {
		defer a.cache.Close() // nolint:errcheck
	}
	return a.server.Run(ctx)
}
