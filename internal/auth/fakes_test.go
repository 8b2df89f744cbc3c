// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/finscope/internal/auth"
	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
	"github.com/taibuivan/finscope/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// # Session Store

type memorySessions struct {
	mu      sync.Mutex
	records map[string]*auth.Session
	deleted []string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{records: map[string]*auth.Session{}}
}

func (m *memorySessions) Create(_ context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.records[session.ID] = &copied
	return nil
}

func (m *memorySessions) Find(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	copied := *session
	return &copied, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memorySessions) Ping(context.Context) error { return nil }

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// # Pending State Store

type memoryPending struct {
	mu      sync.Mutex
	records map[string]auth.PendingState
}

func newMemoryPending() *memoryPending {
	return &memoryPending{records: map[string]auth.PendingState{}}
}

func (m *memoryPending) Save(_ context.Context, state string, pending auth.PendingState, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[state] = pending
	return nil
}

func (m *memoryPending) Consume(_ context.Context, state string) (*auth.PendingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.records[state]
	if !ok {
		return nil, apperr.NotFound("OAuth state")
	}
	delete(m.records, state)
	return &pending, nil
}

// # Backend

type fakeBackend struct {
	mu sync.Mutex

	loginResponse    *backend.TokenResponse
	loginErr         error
	registerResponse *backend.TokenResponse
	registerErr      error
	upsertResponse   *backend.TokenResponse
	upsertErr        error
	logoutErr        error

	// block makes Login and UpsertOAuth wait for the caller's deadline, like an
	// unresponsive backend reached through backend.Client.
	block bool

	upserts   []backend.OAuthUser
	registers []backend.RegisterRequest
	logouts   []string
}

func (f *fakeBackend) Login(ctx context.Context, _, _ string) (*backend.TokenResponse, error) {
	if f.block {
		return nil, waitForDeadline(ctx)
	}
	return f.loginResponse, f.loginErr
}

func (f *fakeBackend) Register(_ context.Context, input backend.RegisterRequest) (*backend.TokenResponse, error) {
	f.mu.Lock()
	f.registers = append(f.registers, input)
	f.mu.Unlock()
	return f.registerResponse, f.registerErr
}

func (f *fakeBackend) UpsertOAuth(ctx context.Context, user backend.OAuthUser) (*backend.TokenResponse, error) {
	f.mu.Lock()
	f.upserts = append(f.upserts, user)
	f.mu.Unlock()
	if f.block {
		return nil, waitForDeadline(ctx)
	}
	return f.upsertResponse, f.upsertErr
}

// waitForDeadline blocks until ctx ends and reports it the way backend.Client does.
func waitForDeadline(ctx context.Context) error {
	<-ctx.Done()
	return apperr.Upstream(ctx.Err())
}

func (f *fakeBackend) Logout(_ context.Context, session backend.Session) error {
	f.mu.Lock()
	f.logouts = append(f.logouts, session.BackendToken())
	f.mu.Unlock()
	return f.logoutErr
}

// # OAuth Provider

type fakeProvider struct {
	name     auth.Provider
	profile  auth.RawProfile
	err      error
	codes    []string
	verifier string
	block    bool
}

func (f *fakeProvider) Name() auth.Provider { return f.name }

func (f *fakeProvider) AuthCodeURL(state, verifier string) string {
	f.verifier = verifier
	return "https://provider.test/authorize?" + url.Values{"state": {state}, "code_challenge_method": {"S256"}}.Encode()
}

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (auth.RawProfile, error) {
	f.codes = append(f.codes, code)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if verifier != f.verifier {
		return nil, apperr.Unauthorized("verifier mismatch")
	}
	return f.profile, f.err
}

func twitterProfile(id, username, name string) auth.TwitterProfile {
	var profile auth.TwitterProfile
	profile.Data.ID = id
	profile.Data.Username = username
	profile.Data.Name = name
	return profile
}

// # Recorder

type countingRecorder struct {
	mu        sync.Mutex
	signIns   map[string]int
	teardowns map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{signIns: map[string]int{}, teardowns: map[string]int{}}
}

func (r *countingRecorder) SignIn(provider, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signIns[provider+"/"+outcome]++
}

func (r *countingRecorder) SessionTeardown(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardowns[reason]++
}

// # Fixture

type fixture struct {
	service  *auth.Service
	backend  *fakeBackend
	sessions *memorySessions
	pending  *memoryPending
	twitter  *fakeProvider
	google   *fakeProvider
	recorder *countingRecorder
	config   auth.ServiceConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend:  &fakeBackend{},
		sessions: newMemorySessions(),
		pending:  newMemoryPending(),
		twitter:  &fakeProvider{name: auth.ProviderTwitter},
		recorder: newCountingRecorder(),
		config:   auth.ServiceConfig{SessionTTL: time.Hour, ExchangeTimeout: 5 * time.Second},
	}
	f.rebuild()
	return f
}

// rebuild recreates the service after the fixture's providers or config changed.
func (f *fixture) rebuild() {
	providers := []auth.OAuthProvider{f.twitter}
	if f.google != nil {
		providers = append(providers, f.google)
	}
	f.service = auth.NewService(f.backend, f.sessions, f.pending, auth.NewRegistry(providers...), f.recorder, f.config)
}

// withGoogle registers a Google provider that returns profile.
func (f *fixture) withGoogle(profile auth.RawProfile) {
	f.google = &fakeProvider{name: auth.ProviderGoogle, profile: profile}
	f.rebuild()
}

// withExchangeTimeout replaces the sign-in deadline.
func (f *fixture) withExchangeTimeout(timeout time.Duration) {
	f.config.ExchangeTimeout = timeout
	f.rebuild()
}

func newCookies(t *testing.T) *auth.CookieManager {
	t.Helper()
	signer, err := sec.NewSessionSigner(testSecret, constants.SessionIssuer)
	require.NoError(t, err)
	return auth.NewCookieManager(signer, false)
}

// credentialToken builds a backend-style token. The key is irrelevant because
// the gateway never verifies the signature.
func credentialToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-only-key"))
	require.NoError(t, err)
	return token
}

// # Cookie Signing

// brokenSigner cannot seal anything, as with a misconfigured key.
type brokenSigner struct{}

func (brokenSigner) Sign(string, time.Time) (string, error) {
	return "", errors.New("signing key unavailable")
}

func (brokenSigner) Verify(string) (string, error) {
	return "", errors.New("signing key unavailable")
}

// # Logging

// logCapture collects the JSON entries written through a context logger.
type logCapture struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

// context returns ctx carrying a logger that writes into the capture.
func (c *logCapture) context(ctx context.Context) context.Context {
	logger := slog.New(slog.NewJSONHandler(&lockedWriter{capture: c}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxutil.WithLogger(ctx, logger)
}

// entries returns every captured entry with the given message.
func (c *logCapture) entries(t *testing.T, message string) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var found []map[string]any
	decoder := json.NewDecoder(bytes.NewReader(c.buffer.Bytes()))
	for decoder.More() {
		var entry map[string]any
		require.NoError(t, decoder.Decode(&entry))
		if entry["msg"] == message {
			found = append(found, entry)
		}
	}
	return found
}

type lockedWriter struct {
	capture *logCapture
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.capture.mu.Lock()
	defer w.capture.mu.Unlock()
	return w.capture.buffer.Write(p)
}
