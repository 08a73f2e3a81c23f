package main

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/namity/backend/internal/config"
	"github.com/namity/backend/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8001"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultAlgorithm    = "RS256"
	defaultIssuer       = "namity"
	defaultS3Region     = "us-east-1"
	defaultS3Bucket     = "avatars"
	defaultAvatarURLTTL = time.Hour
	defaultCacheTTL     = 5 * time.Minute
)

type Config struct {
	LogLevel    string
	Environment string

	// Address on which the profile service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Public key of the auth service, tokens are verified with it
	PublicKeyPath string
	Algorithm     string
	Issuer        string

	// S3 compatible storage for avatars
	S3Endpoint       string
	S3PublicEndpoint string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string

	// Lifetime of presigned avatar links
	AvatarURLTTL time.Duration

	// Redis for public profile cache, caching is off if empty
	RedisURL string
	CacheTTL time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		Environment:  defaultEnvironment,
		ListenAddr:   defaultListenAddr,
		Algorithm:    defaultAlgorithm,
		Issuer:       defaultIssuer,
		S3Region:     defaultS3Region,
		S3Bucket:     defaultS3Bucket,
		AvatarURLTTL: defaultAvatarURLTTL,
		CacheTTL:     defaultCacheTTL,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	envMap, err := config.ReadDotEnv(getwd)
	if err != nil {
		return err
	}

	return c.LoadEnv(func(key string) string {
		return envMap[key]
	})
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	return config.Apply(getenv, map[string]config.Setter{
		"RUN_ADDRESS":        config.String(&c.ListenAddr),
		"DATABASE_URI":       config.String(&c.DatabaseDSN),
		"LOG_LEVEL":          config.String(&c.LogLevel),
		"ENVIRONMENT":        config.String(&c.Environment),
		"PUBLIC_KEY_PATH":    config.String(&c.PublicKeyPath),
		"ALGORITHM":          config.String(&c.Algorithm),
		"ISSUER":             config.String(&c.Issuer),
		"S3_ENDPOINT":        config.String(&c.S3Endpoint),
		"S3_PUBLIC_ENDPOINT": config.String(&c.S3PublicEndpoint),
		"S3_REGION":          config.String(&c.S3Region),
		"S3_ACCESS_KEY":      config.String(&c.S3AccessKey),
		"S3_SECRET_KEY":      config.String(&c.S3SecretKey),
		"S3_BUCKET":          config.String(&c.S3Bucket),
		"AVATAR_URL_TTL":     config.Duration(&c.AvatarURLTTL),
		"REDIS_URL":          config.String(&c.RedisURL),
		"PROFILE_CACHE_TTL":  config.Duration(&c.CacheTTL),
	})
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("profileservice", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.PublicKeyPath, "public-key", c.PublicKeyPath, "Path to PEM encoded public key of the auth service")
	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "Token signing algorithm")
	fs.StringVar(&c.Issuer, "issuer", c.Issuer, "Expected token issuer")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "S3 endpoint")
	fs.StringVar(&c.S3PublicEndpoint, "s3-public-endpoint", c.S3PublicEndpoint, "S3 endpoint used in avatar links")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3AccessKey, "s3-access-key", c.S3AccessKey, "S3 access key")
	fs.StringVar(&c.S3SecretKey, "s3-secret-key", c.S3SecretKey, "S3 secret key")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket for avatars")
	fs.DurationVar(&c.AvatarURLTTL, "avatar-url-ttl", c.AvatarURLTTL, "Lifetime of presigned avatar links")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis url for profile cache (redis://host:6379/0), empty to disable")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "Lifetime of cached profiles")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN must be set"))
	}
	if c.PublicKeyPath == "" {
		errs = append(errs, errors.New("public key path must be set"))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket must be set"))
	}
	if c.AvatarURLTTL <= 0 {
		errs = append(errs, errors.New("avatar url lifetime must be positive"))
	}
	if c.RedisURL != "" && c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache lifetime must be positive"))
	}

	return errors.Join(errs...)
}
