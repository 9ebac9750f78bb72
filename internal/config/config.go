// Package config loads startup configuration from the environment.
// Nothing in here is consulted after boot; the parsed value is handed
// to the server explicitly.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr          string `env:"REFLEX_ADDR" envDefault:":8080"`
	DBPath        string `env:"REFLEX_DB_PATH" envDefault:"reflex.db"`
	MigrationsDir string `env:"REFLEX_MIGRATIONS_DIR"`
	StaticDir     string `env:"REFLEX_STATIC_DIR"`

	// Exactly one of AdminToken or AdminTokenHash must be set.
	// AdminTokenHash is a bcrypt hash of the shared secret, for
	// deployments that keep the plaintext out of the environment.
	AdminToken     string `env:"REFLEX_ADMIN_TOKEN"`
	AdminTokenHash string `env:"REFLEX_ADMIN_TOKEN_HASH"`

	// JWTSecret signs short-lived admin bearer tokens issued by
	// /api/admin/login. Empty disables the login exchange.
	JWTSecret string `env:"REFLEX_JWT_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.AdminToken == "" && c.AdminTokenHash == "" {
		return errors.New("REFLEX_ADMIN_TOKEN or REFLEX_ADMIN_TOKEN_HASH is required")
	}
	if c.AdminToken != "" && c.AdminTokenHash != "" {
		return errors.New("set only one of REFLEX_ADMIN_TOKEN and REFLEX_ADMIN_TOKEN_HASH")
	}
	return nil
}
