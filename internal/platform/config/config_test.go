// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/finscope/internal/platform/config"
)

// setBaseEnv sets the minimum environment Load accepts.
func setBaseEnv(t *testing.T) {
	t.Helper()

	t.Setenv("BACKEND_API_URL", "http://backend.test")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_STORE", config.SessionStoreRedis)
	t.Setenv("BACKEND_TIMEOUT", "15s")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("AUTH_EXCHANGE_TIMEOUT", "10s")
	t.Setenv("PROTECTED_PATHS", " /profile , ,/watchlist")
}

/*
TestLoad verifies parsing of the environment and rejection of settings the
server cannot run with.
*/
func TestLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		setBaseEnv(t)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 10*time.Second, cfg.AuthExchangeTimeout)
		assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, []string{"/profile", "/watchlist"}, cfg.ProtectedPaths)
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero_exchange_timeout", key: "AUTH_EXCHANGE_TIMEOUT", value: "0s"},
		{name: "negative_exchange_timeout", key: "AUTH_EXCHANGE_TIMEOUT", value: "-1s"},
		{name: "zero_backend_timeout", key: "BACKEND_TIMEOUT", value: "0s"},
		{name: "zero_session_ttl", key: "SESSION_TTL", value: "0s"},
		{name: "short_secret", key: "SESSION_SECRET", value: "too-short"},
		{name: "unknown_store", key: "SESSION_STORE", value: "memcached"},
		{name: "postgres_without_dsn", key: "SESSION_STORE", value: config.SessionStorePostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tt.key, tt.value)

			cfg, err := config.Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}

	t.Run("error_names_the_setting", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("AUTH_EXCHANGE_TIMEOUT", "0s")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTH_EXCHANGE_TIMEOUT")
	})
}
