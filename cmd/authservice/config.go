package main

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/namity/backend/internal/config"
	"github.com/namity/backend/internal/logger"
)

const (
	defaultListenAddr         = "localhost:8000"
	defaultLoggingLevel       = logger.LevelInfo
	defaultEnvironment        = logger.EnvProduction
	defaultAlgorithm          = "RS256"
	defaultIssuer             = "namity"
	defaultAccessTTLMinutes   = 15
	defaultRefreshTTLDays     = 7
	defaultSessionPurgePeriod = time.Hour
)

type Config struct {
	LogLevel    string
	Environment string

	// Address on which the auth service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// PEM encoded keypair used to sign tokens
	PrivateKeyPath string
	PublicKeyPath  string
	Algorithm      string
	Issuer         string

	AccessTokenExpireMinutes int
	RefreshTokenExpireDays   int

	// Mark token cookies as Secure (https only)
	CookieSecure bool

	// How often expired sessions are deleted. Zero disables purging
	SessionPurgeInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:                 defaultLoggingLevel,
		Environment:              defaultEnvironment,
		ListenAddr:               defaultListenAddr,
		Algorithm:                defaultAlgorithm,
		Issuer:                   defaultIssuer,
		AccessTokenExpireMinutes: defaultAccessTTLMinutes,
		RefreshTokenExpireDays:   defaultRefreshTTLDays,
		SessionPurgeInterval:     defaultSessionPurgePeriod,
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
		"RUN_ADDRESS":                 config.String(&c.ListenAddr),
		"DATABASE_URI":                config.String(&c.DatabaseDSN),
		"LOG_LEVEL":                   config.String(&c.LogLevel),
		"ENVIRONMENT":                 config.String(&c.Environment),
		"PRIVATE_KEY_PATH":            config.String(&c.PrivateKeyPath),
		"PUBLIC_KEY_PATH":             config.String(&c.PublicKeyPath),
		"ALGORITHM":                   config.String(&c.Algorithm),
		"ISSUER":                      config.String(&c.Issuer),
		"ACCESS_TOKEN_EXPIRE_MINUTES": config.Int(&c.AccessTokenExpireMinutes),
		"REFRESH_TOKEN_EXPIRE_DAYS":   config.Int(&c.RefreshTokenExpireDays),
		"COOKIE_SECURE":               config.Bool(&c.CookieSecure),
		"SESSION_PURGE_INTERVAL":      config.Duration(&c.SessionPurgeInterval),
	})
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authservice", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.PrivateKeyPath, "private-key", c.PrivateKeyPath, "Path to PEM encoded private key")
	fs.StringVar(&c.PublicKeyPath, "public-key", c.PublicKeyPath, "Path to PEM encoded public key")
	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "Token signing algorithm (RS256, ES256, EdDSA, ...)")
	fs.StringVar(&c.Issuer, "issuer", c.Issuer, "Token issuer")
	fs.IntVar(&c.AccessTokenExpireMinutes, "access-ttl-minutes", c.AccessTokenExpireMinutes, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTokenExpireDays, "refresh-ttl-days", c.RefreshTokenExpireDays, "Refresh token lifetime in days")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Send token cookies over https only")
	fs.DurationVar(&c.SessionPurgeInterval, "session-purge-interval", c.SessionPurgeInterval, "Expired sessions purge interval, 0 to disable")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN must be set"))
	}
	if c.PrivateKeyPath == "" || c.PublicKeyPath == "" {
		errs = append(errs, errors.New("private and public key paths must be set"))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}
	if c.RefreshTokenExpireDays <= 0 {
		errs = append(errs, errors.New("refresh token lifetime must be positive"))
	}
	if c.SessionPurgeInterval < 0 {
		errs = append(errs, errors.New("session purge interval must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}
