// Package config holds the environment-based configuration of the authority
// server binary.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for the authority server.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// DBPath locates the SQLite database file.
	DBPath string `env:"DB_PATH" envDefault:"attest.db"`

	// IssuerKeyPath locates the issuer's DER-encoded signing key. When the
	// file doesn't exist, a key is generated and written there, along with
	// the verification key next to it.
	IssuerKeyPath string `env:"ISSUER_KEY_PATH" envDefault:"signing_key.der"`

	// SessionTTL is the lifetime of every issued certificate.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	// ClientWhitelistPath names a file of allowed client application ids,
	// one per line. Empty means every client id is accepted.
	ClientWhitelistPath string `env:"CLIENT_WHITELIST" envDefault:""`

	// SingleActiveSession limits every (user, client key) pair to one
	// non-expired session.
	SingleActiveSession bool `env:"SINGLE_ACTIVE_SESSION" envDefault:"false"`
}

// Load reads configuration from environment variables. It first attempts to
// load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if c.IssuerKeyPath == "" {
		return fmt.Errorf("ISSUER_KEY_PATH must not be empty")
	}
	return nil
}
