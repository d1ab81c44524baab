// Package config reads the service settings from the environment, with an
// optional .env file underneath it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minSecretLength = 32
	minBcryptCost   = 4
	maxBcryptCost   = 14
)

// Config holds every setting the server and CLI need.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseDriver string
	DatabasePath   string // sqlite
	DatabaseURL    string // postgres

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration

	BcryptCost         int
	LoginRatePerMinute int

	OTLPEndpoint string
}

// Load reads the configuration. Variables already set in the environment
// take precedence over those in envFiles (default ".env"); missing files are
// skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	file := map[string]string{}
	for _, name := range envFiles {
		vars, err := godotenv.Read(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for k, v := range vars {
			if _, seen := file[k]; !seen {
				file[k] = v
			}
		}
	}

	env := &reader{lookup: func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := file[key]
		return v, ok && v != ""
	}}

	cfg := &Config{
		Port:               env.str("PORT", "8080"),
		Environment:        env.str("ENVIRONMENT", "development"),
		LogLevel:           env.level("LOG_LEVEL", slog.LevelInfo),
		DatabaseDriver:     strings.ToLower(env.str("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:       env.str("DATABASE_PATH", "library.db"),
		DatabaseURL:        env.str("DATABASE_URL", ""),
		JWTSecret:          env.str("JWT_SECRET", ""),
		JWTIssuer:          env.str("JWT_ISSUER", "library-api"),
		JWTAudience:        env.str("JWT_AUDIENCE", "library-api-clients"),
		TokenTTL:           time.Duration(env.integer("JWT_EXPIRES_MINUTES", 120)) * time.Minute,
		BcryptCost:         env.integer("BCRYPT_COST", 12),
		LoginRatePerMinute: env.integer("LOGIN_RATE_PER_MINUTE", 10),
		OTLPEndpoint:       env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := errors.Join(env.err, cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters for HMAC-SHA256 security", minSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_MINUTES must be positive"))
	}
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", minBcryptCost, maxBcryptCost))
	}
	if c.LoginRatePerMinute <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_MINUTE must be positive"))
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.err = errors.Join(r.err, fmt.Errorf("invalid %s %q: not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		r.err = errors.Join(r.err, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return def
	}
	return lvl
}
