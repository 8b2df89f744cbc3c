// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/finscope/internal/api"
	"github.com/taibuivan/finscope/internal/auth"
	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/config"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/metrics"
	"github.com/taibuivan/finscope/internal/platform/sec"
	"github.com/taibuivan/finscope/internal/profile"
)

// newTestServer wires the real router. The backend URL is never dialed because
// every request in these tests is anonymous.
func newTestServer(t *testing.T, checks ...api.HealthCheck) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Config{ServerPort: "0", Environment: "test", PublicURL: "http://localhost:3000"}
	registry := metrics.New()

	signer, err := sec.NewSessionSigner("0123456789abcdef0123456789abcdef", constants.SessionIssuer)
	require.NoError(t, err)
	cookies := auth.NewCookieManager(signer, false)

	client, err := backend.NewClient("http://backend.invalid", time.Second)
	require.NoError(t, err)

	authService := auth.NewService(client, nil, nil, nil, registry, auth.ServiceConfig{SessionTTL: time.Hour, ExchangeTimeout: time.Second})
	authHandler := auth.NewHandler(authService, cookies)

	guard, err := auth.NewRouteGuard([]string{constants.ProfilePath}, constants.LoginPath)
	require.NoError(t, err)

	liveness, readiness := api.NewHealthHandlers(checks, logger)

	server := api.NewServer(ctx, cfg, logger, registry, api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Metrics:      registry.Handler(),
		Authenticate: auth.Authenticate(authService, cookies),
		Guard:        guard,
		Auth:         authHandler,
		Profile:      profile.NewHandler(profile.NewService(client), authHandler),
	})
	return server.Handler()
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

/*
TestServer_Routing verifies the composed router end to end for anonymous callers.
*/
func TestServer_Routing(t *testing.T) {
	handler := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		recorder := get(handler, "/health")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
	})

	t.Run("profile_redirects_to_login", func(t *testing.T) {
		recorder := get(handler, "/profile")
		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, "/login?callbackUrl=%2Fprofile", recorder.Header().Get("Location"))
	})

	t.Run("api_without_session_is_401_not_redirect", func(t *testing.T) {
		recorder := get(handler, "/api/watchlist")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"NO_SESSION_TOKEN"`)
		assert.Empty(t, recorder.Header().Get("Location"))
	})

	t.Run("login_page", func(t *testing.T) {
		recorder := get(handler, "/login")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"data":{"credentials":true,"providers":[],"callbackUrl":"/profile"}}`, recorder.Body.String())
	})

	t.Run("session_is_null", func(t *testing.T) {
		recorder := get(handler, "/auth/session")
		assert.JSONEq(t, `{"data":null}`, recorder.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		get(handler, "/health")
		recorder := get(handler, "/metrics")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "finscope_http_requests_total")
	})
}

func TestReadiness(t *testing.T) {
	healthy := api.HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }}
	failing := api.HealthCheck{Name: "backend", Check: func(context.Context) error { return errors.New("dial tcp 10.0.0.7:8000: refused") }}

	recorder := get(newTestServer(t, healthy), "/ready")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"status":"ready","checks":[{"name":"redis","ok":true}]}}`, recorder.Body.String())

	recorder = get(newTestServer(t, healthy, failing), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"degraded"`)
	assert.NotContains(t, recorder.Body.String(), "10.0.0.7")
}
