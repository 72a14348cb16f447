// Package config loads gridtlib's runtime configuration from the
// environment (spec §6: "Configuration. Environment variables
// recognized..."), plus an optional mail-template registry file.
package config

import (
	"fmt"
	"os"

	"github.com/GridtNetwork/gridtlib/internal/identity"
	"github.com/GridtNetwork/gridtlib/internal/mail"
)

// Config holds every environment-derived setting the composition root
// needs to build the service graph (spec §6, §9).
type Config struct {
	// DatabaseURL is the store connection string (spec §6 DATABASE_URL).
	// Defaults to an in-memory SQLite database for local smoke runs.
	DatabaseURL string
	// SecretKey signs identity tokens (spec §6 SECRET_KEY, §4.2).
	SecretKey string
	// Templates names the mail templates identity flows send (spec §6
	// PASSWORD_RESET_TEMPLATE, PASSWORD_CHANGE_NOTIFICATION_TEMPLATE,
	// EMAIL_CHANGE_TEMPLATE, EMAIL_CHANGE_NOTIFICATION_TEMPLATE).
	Templates identity.Templates
	// SMTP is the outbound mail transport (spec §6 "pluggable sender").
	SMTP mail.SMTPConfig
	// EmailFrom is the From address on outbound mail.
	EmailFrom string
	// EmailAPIKey is the credential for outbound mail (spec §6
	// EMAIL_API_KEY); plugged into SMTP.Password when the transport is
	// an API-key-authenticated relay rather than a local MTA.
	EmailAPIKey string
	// TemplatesFile optionally points at a templates.yaml registry
	// (internal/mail.LoadRegistry); when empty, callers are expected to
	// supply their own registry.
	TemplatesFile string
	// LogLevel is parsed with ParseLogLevel.
	LogLevel string
	// ListenAddr is the bind address for whatever transport the
	// composition root exposes (left generic — spec §6 does not mandate
	// a transport, only the JSON payload shapes it carries).
	ListenAddr string
}

// InMemoryDatabaseURL is the default store connection string: an
// in-memory SQLite database, matching the store package's own
// InMemoryDSN.
const InMemoryDatabaseURL = "file::memory:?cache=shared"

// envFunc is a seam for tests; production code always uses os.Getenv.
var envFunc = os.Getenv

// Load builds a Config by reading the environment variables listed in
// spec §6, applying defaults, and validating the result.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: envFunc("DATABASE_URL"),
		SecretKey:   envFunc("SECRET_KEY"),
		Templates: identity.Templates{
			PasswordResetLink: envFunc("PASSWORD_RESET_TEMPLATE"),
			PasswordChanged:   envFunc("PASSWORD_CHANGE_NOTIFICATION_TEMPLATE"),
			EmailChangeToken:  envFunc("EMAIL_CHANGE_TEMPLATE"),
		},
		EmailAPIKey:   envFunc("EMAIL_API_KEY"),
		EmailFrom:     envFunc("EMAIL_FROM"),
		TemplatesFile: envFunc("TEMPLATES_FILE"),
		LogLevel:      envFunc("LOG_LEVEL"),
		ListenAddr:    envFunc("LISTEN_ADDR"),
	}
	// EMAIL_CHANGE_NOTIFICATION_TEMPLATE (spec §6) has no dedicated flow
	// in §4.2 beyond the token-gated EmailChangeToken send; kept as a
	// recognized-but-unused env var name rather than invented into a
	// notification identity.Service doesn't otherwise send.

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = InMemoryDatabaseURL
	}
	if c.EmailFrom == "" {
		c.EmailFrom = "noreply@gridt.example"
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = envFunc("SMTP_HOST")
	}
	if c.SMTP.Port == 0 {
		if p := envFunc("SMTP_PORT"); p != "" {
			fmt.Sscanf(p, "%d", &c.SMTP.Port)
		}
		if c.SMTP.Port == 0 {
			c.SMTP.Port = 587
		}
	}
	if c.SMTP.Username == "" {
		c.SMTP.Username = envFunc("SMTP_USERNAME")
	}
	if c.SMTP.Password == "" {
		c.SMTP.Password = c.EmailAPIKey
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so callers can assume defaults are filled.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a configuration suitable for local smoke runs: an
// in-memory database and a throwaway signing key. Not for production —
// SecretKey must come from the environment there.
func Default() *Config {
	cfg := &Config{SecretKey: "dev-only-insecure-key"}
	cfg.applyDefaults()
	return cfg
}
