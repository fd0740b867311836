// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DBDriver selects the report store backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific data source (file path for sqlite).
	DBDSN string `koanf:"db_dsn"`

	// ClassifierURL is the base URL of the model-serving sidecar. Empty means no model.
	ClassifierURL string `koanf:"classifier_url"`

	// ClassifierTimeoutMS bounds a single classifier call.
	ClassifierTimeoutMS int `koanf:"classifier_timeout_ms"`

	// NormalizeMode is the normalizer mode used for predictions: lemmatize or stem.
	NormalizeMode string `koanf:"normalize_mode"`

	// Brevo transactional email settings.
	BrevoAPIKey     string `koanf:"brevo_api_key"`
	BrevoBaseURL    string `koanf:"brevo_base_url"`
	EmailRecipient  string `koanf:"email_recipient"`
	EmailSender     string `koanf:"email_sender"`
	EmailSenderName string `koanf:"email_sender_name"`

	// NotifyBatchSize is the number of reports that trigger one digest.
	NotifyBatchSize int `koanf:"notify_batch_size"`

	// DeliveryMaxAttempts bounds email delivery attempts per digest.
	DeliveryMaxAttempts int `koanf:"delivery_max_attempts"`

	// MaxReportsLimit caps GET /reports?limit.
	MaxReportsLimit int `koanf:"max_reports_limit"`

	// AdminJWTSecret signs admin bearer tokens. Empty disables GET /reports.
	AdminJWTSecret string `koanf:"admin_jwt_secret"`

	// EnvFile is the dotenv file loaded before env vars are read.
	EnvFile string `koanf:"env_file"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8000",
		DBDriver:            DriverSQLite,
		DBDSN:               "bad_predictions.db",
		ClassifierTimeoutMS: 2000,
		NormalizeMode:       "lemmatize",
		BrevoBaseURL:        "https://api.brevo.com",
		EmailSender:         "support@devbystep.fr",
		EmailSenderName:     "Sentiment Analysis",
		NotifyBatchSize:     3,
		DeliveryMaxAttempts: 3,
		MaxReportsLimit:     100,
		EnvFile:             ".env",
	}
}
