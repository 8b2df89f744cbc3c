// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Redis, backend client, providers) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Session Backends

const (
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// # Configuration Schema

// Config holds all runtime configuration for the Finscope gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// PublicURL is the externally visible origin, used for CORS and OAuth redirects.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Financial data backend (REST)
	BackendURL     string        `env:"BACKEND_API_URL,required"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	// Session handling
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL"   envDefault:"24h"`
	SessionStore  string        `env:"SESSION_STORE" envDefault:"redis"`

	// ProtectedPaths lists the path patterns the route guard keeps behind a session.
	ProtectedPaths []string `env:"PROTECTED_PATHS" envSeparator:"," envDefault:"/profile"`

	// Key-Value Cache (Redis): sessions and pending OAuth state
	RedisURL string `env:"REDIS_URL,required"`

	// Relational Database (PostgreSQL), only needed for the durable session store
	DatabaseURL string `env:"DATABASE_URL"`

	// Identity providers
	AuthExchangeTimeout time.Duration `env:"AUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	TwitterClientID     string `env:"TWITTER_CLIENT_ID"`
	TwitterClientSecret string `env:"TWITTER_CLIENT_SECRET"`
	TwitterRedirectURL  string `env:"TWITTER_REDIRECT_URL"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case SessionStoreRedis:
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when SESSION_STORE=%s", SessionStorePostgres)
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("config: SESSION_SECRET must be at least 32 bytes")
	}

	for name, value := range map[string]time.Duration{
		"BACKEND_TIMEOUT":       c.BackendTimeout,
		"SESSION_TTL":           c.SessionTTL,
		"AUTH_EXCHANGE_TIMEOUT": c.AuthExchangeTimeout,
	} {
		if value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, value)
		}
	}

	c.ProtectedPaths = trimList(c.ProtectedPaths)
	c.ExtraOrigins = trimList(c.ExtraOrigins)
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowedOrigins returns the public origin followed by any extra origins.
func (c *Config) AllowedOrigins() []string {
	return append([]string{strings.TrimRight(c.PublicURL, "/")}, c.ExtraOrigins...)
}

// GoogleEnabled reports whether the Google sign-in provider is fully configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// TwitterEnabled reports whether the Twitter/X sign-in provider is fully configured.
func (c *Config) TwitterEnabled() bool {
	return c.TwitterClientID != "" && c.TwitterClientSecret != "" && c.TwitterRedirectURL != ""
}

// trimList removes blank entries from a CSV-split slice.
func trimList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
