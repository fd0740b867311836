package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SENTIMENT_"

// legacyEnv maps the unprefixed names older deployments keep in their .env
// file onto config keys. SENTIMENT_ variables take precedence.
var legacyEnv = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"BREVO_API_KEY":   "brevo_api_key",
	"EMAIL_RECIPIENT": "email_recipient",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SENTIMENT_CONFIG is set
//  3. unprefixed BREVO_API_KEY and EMAIL_RECIPIENT
//  4. env (prefix SENTIMENT_)
//
// The dotenv file is applied to the process env before steps 3 and 4.
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	// dotenv never overrides variables already present in the process env.
	envFile := base.EnvFile
	if v, ok := os.LookupEnv(envPrefix + "ENV_FILE"); ok {
		envFile = v
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, envFile, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	legacyProvider := env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	})
	if err := k.Load(legacyProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// SENTIMENT_DB_DSN -> db_dsn (flat keys, underscores preserved).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	}
	if c.NotifyBatchSize < 1 {
		return fmt.Errorf("%w: notify_batch_size must be positive", ErrInvalidConfig)
	}
	if c.DeliveryMaxAttempts < 1 {
		return fmt.Errorf("%w: delivery_max_attempts must be positive", ErrInvalidConfig)
	}
	return nil
}
