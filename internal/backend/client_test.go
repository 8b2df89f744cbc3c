// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/metrics"
)

type fakeSession struct {
	id    string
	token string
}

func (s fakeSession) SessionID() string    { return s.id }
func (s fakeSession) BackendToken() string { return s.token }

type recordedCall struct {
	method  string
	outcome string
}

type fakeRecorder struct{ calls []recordedCall }

func (r *fakeRecorder) BackendRequest(method, outcome string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{method, outcome})
}

// newBackend starts a test server and a client pointed at it. hits counts every
// request that reached the server.
func newBackend(t *testing.T, handler http.HandlerFunc, opts ...backend.Option) (*backend.Client, *atomic.Int32) {
	t.Helper()

	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
		handler(writer, request)
	}))
	t.Cleanup(server.Close)

	client, err := backend.NewClient(server.URL, 2*time.Second, opts...)
	require.NoError(t, err)
	return client, hits
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "backend:8000", "ftp://backend", "http://"} {
		_, err := backend.NewClient(raw, time.Second)
		assert.Error(t, err, raw)
	}
}

func TestIsPublic(t *testing.T) {
	assert.True(t, backend.IsPublic("/users/login"))
	assert.True(t, backend.IsPublic("/users/register"))
	assert.True(t, backend.IsPublic("/users/oauth?next=1"))

	assert.False(t, backend.IsPublic("/users/me"))
	assert.False(t, backend.IsPublic("/users/login/extra"))
	assert.False(t, backend.IsPublic("/api/users/login"))
	assert.False(t, backend.IsPublic("/users/companies"))
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var authorization string
	client, _ := newBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		authorization = request.Header.Get("Authorization")
		writeJSON(writer, http.StatusOK, map[string]string{"id": "7", "email": "a@b.com", "username": "a"})
	})

	profile, err := client.Me(context.Background(), fakeSession{id: "s1", token: "T1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer T1", authorization)
	assert.Equal(t, "a@b.com", profile.Email)
}

func TestDo_NoSessionTokenNeverHitsNetwork(t *testing.T) {
	recorder := &fakeRecorder{}
	client, hits := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}, backend.WithRecorder(recorder))

	sessions := []backend.Session{nil, fakeSession{id: "s1"}}
	for _, session := range sessions {
		_, err := client.SavedCompanies(context.Background(), session)
		require.Error(t, err)
		assert.True(t, apperr.HasCode(err, apperr.CodeNoSessionToken))
		assert.False(t, backend.IsTeardown(err))
	}

	assert.Zero(t, hits.Load())
	assert.Equal(t, metrics.OutcomeNoToken, recorder.calls[0].outcome)
}

func TestDo_PublicEndpointsSendNoCredentials(t *testing.T) {
	var authorization []string
	client, hits := newBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		authorization = append(authorization, request.Header.Get("Authorization"))
		writeJSON(writer, http.StatusOK, map[string]any{"token": "T", "user_id": 1})
	})

	ctx := context.Background()
	_, err := client.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	_, err = client.Register(ctx, backend.RegisterRequest{Username: "a", Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	_, err = client.UpsertOAuth(ctx, backend.OAuthUser{Email: "a@b.com", Name: "A", Provider: "google"})
	require.NoError(t, err)

	// A session passed to a public call is ignored.
	require.NoError(t, client.Do(ctx, fakeSession{id: "s", token: "T9"}, http.MethodPost, backend.PathLogin, nil, nil))

	assert.EqualValues(t, 4, hits.Load())
	assert.Equal(t, []string{"", "", "", ""}, authorization)
}

func TestDo_UnauthorizedRunsTeardownHook(t *testing.T) {
	var tornDown []string
	hook := func(_ context.Context, sessionID string) error {
		tornDown = append(tornDown, sessionID)
		return nil
	}

	client, hits := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"detail": "Token has expired"})
	}, backend.WithUnauthorizedHook(hook))

	_, err := client.Me(context.Background(), fakeSession{id: "s1", token: "stale"})
	require.Error(t, err)

	assert.True(t, backend.IsTeardown(err))
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.Equal(t, []string{"s1"}, tornDown)
	assert.EqualValues(t, 1, hits.Load(), "no retry after a 401")
}

func TestDo_UnauthorizedHookFailureStillReturnsUnauthorized(t *testing.T) {
	hook := func(context.Context, string) error { return errors.New("redis down") }
	client, _ := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}, backend.WithUnauthorizedHook(hook))

	err := client.DeleteAccount(context.Background(), fakeSession{id: "s1", token: "T"})
	assert.True(t, backend.IsTeardown(err))
}

func TestDo_PublicUnauthorizedIsInvalidCredentials(t *testing.T) {
	called := false
	hook := func(context.Context, string) error { called = true; return nil }

	client, _ := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
	}, backend.WithUnauthorizedHook(hook))

	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeInvalidCredentials, appErr.Code)
	assert.Equal(t, "Invalid credentials", appErr.Message)
	assert.False(t, backend.IsTeardown(err))
	assert.False(t, called)
}

func TestDo_ServerErrorIsUpstream(t *testing.T) {
	client, hits := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"detail": "db exploded"})
	})

	_, err := client.Stocks(context.Background(), fakeSession{id: "s1", token: "T"})
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeUpstream, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.NotContains(t, appErr.Message, "db exploded")
	assert.EqualValues(t, 1, hits.Load())
}

func TestDo_NetworkFailureIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := backend.NewClient(baseURL, time.Second)
	require.NoError(t, err)

	_, err = client.Me(context.Background(), fakeSession{id: "s1", token: "T"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream))
}

func TestDo_RejectedSurfacesDetail(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		code    string
		message string
	}{
		{"string detail", http.StatusBadRequest, map[string]string{"detail": "duplicate key value"}, apperr.CodeValidation, "duplicate key value"},
		{"validation list", http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "field required"}}}, apperr.CodeValidation, "field required"},
		{"not found", http.StatusNotFound, map[string]string{"detail": "User not found"}, apperr.CodeNotFound, "User not found"},
		{"no body", http.StatusBadRequest, nil, apperr.CodeValidation, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
				if tt.body == nil {
					writer.WriteHeader(tt.status)
					return
				}
				writeJSON(writer, tt.status, tt.body)
			})

			_, err := client.TrackCompanies(context.Background(), fakeSession{id: "s1", token: "T"}, []int64{320193})
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestUntrackCompany_SendsBody(t *testing.T) {
	var got backend.UntrackRequest
	var method string
	client, _ := newBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		method = request.Method
		_ = json.NewDecoder(request.Body).Decode(&got)
		writeJSON(writer, http.StatusOK, map[string]string{"message": "ok"})
	})

	require.NoError(t, client.UntrackCompany(context.Background(), fakeSession{id: "s1", token: "T"}, 789019))
	assert.Equal(t, http.MethodDelete, method)
	assert.EqualValues(t, 789019, got.CIK)
}

func TestSavedCompanies_DecodesMixedCIKs(t *testing.T) {
	client, _ := newBackend(t, func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte(`[
			{"cik":"320193","ticker":"AAPL","companyname":"Apple","year":2024,"month":9,"cash_and_equivalents":"29943000000","long_term_debt":null},
			{"cik":789019,"ticker":"MSFT","companyname":"Microsoft","year":2024,"month":6,"cash_and_equivalents":18315000000,"long_term_debt":42688000000}
		]`))
	})

	companies, err := client.SavedCompanies(context.Background(), fakeSession{id: "s1", token: "T"})
	require.NoError(t, err)
	require.Len(t, companies, 2)

	assert.Equal(t, backend.CIK("320193"), companies[0].CIK)
	assert.Equal(t, "29943000000", companies[0].CashAndEquivalents.String())
	assert.Empty(t, companies[0].LongTermDebt)
	assert.Equal(t, backend.CIK("789019"), companies[1].CIK)

	cik, err := companies[1].CIK.Int64()
	require.NoError(t, err)
	assert.EqualValues(t, 789019, cik)
}

func TestDo_ForwardsRequestID(t *testing.T) {
	var forwarded string
	client, _ := newBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		forwarded = request.Header.Get("X-Request-ID")
		writer.WriteHeader(http.StatusNoContent)
	})

	ctx := contextWithRequestID("req-123")
	require.NoError(t, client.Logout(ctx, fakeSession{id: "s1", token: "T"}))
	assert.Equal(t, "req-123", forwarded)
}
