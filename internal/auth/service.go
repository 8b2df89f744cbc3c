// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/text/cases"

	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
	"github.com/taibuivan/finscope/internal/platform/metrics"
	"github.com/taibuivan/finscope/internal/platform/sec"
	"github.com/taibuivan/finscope/pkg/uuid"
)

// # Contracts & Types

// BackendAuth is the part of the backend API used by sign-in and sign-out.
// [*backend.Client] satisfies it.
type BackendAuth interface {
	Login(ctx context.Context, email, password string) (*backend.TokenResponse, error)
	Register(ctx context.Context, input backend.RegisterRequest) (*backend.TokenResponse, error)
	UpsertOAuth(ctx context.Context, user backend.OAuthUser) (*backend.TokenResponse, error)
	Logout(ctx context.Context, session backend.Session) error
}

// Recorder observes sign-in outcomes and teardowns. [*metrics.Metrics] satisfies it.
type Recorder interface {
	SignIn(provider, outcome string)
	SessionTeardown(reason string)
}

// ServiceConfig holds the timing knobs of the service.
type ServiceConfig struct {
	// SessionTTL is the absolute lifetime of a session.
	SessionTTL time.Duration
	// ExchangeTimeout bounds every sign-in attempt including backend round-trips.
	// Non-positive values fall back to [constants.DefaultAuthExchangeTimeout].
	ExchangeTimeout time.Duration
}

// Service implements sign-in, session resolution and sign-out.
type Service struct {
	backend   BackendAuth
	sessions  SessionRepository
	pending   PendingStateRepository
	providers *Registry
	recorder  Recorder
	config    ServiceConfig
	now       func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	backendAuth BackendAuth,
	sessions SessionRepository,
	pending PendingStateRepository,
	providers *Registry,
	recorder Recorder,
	config ServiceConfig,
) *Service {
	if providers == nil {
		providers = NewRegistry()
	}
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = constants.DefaultAuthExchangeTimeout
	}
	return &Service{
		backend:   backendAuth,
		sessions:  sessions,
		pending:   pending,
		providers: providers,
		recorder:  recorder,
		config:    config,
		now:       time.Now,
	}
}

// Providers lists the OAuth providers available for sign-in.
func (service *Service) Providers() []Provider {
	return service.providers.Names()
}

// # Credentials Flow

/*
SignInWithPassword authenticates against the backend and opens a session.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *Session: The newly created record
  - error: INVALID_CREDENTIALS, INVALID_TOKEN, UPSTREAM_ERROR or storage errors
*/
func (service *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	lifecycle, err := beginSignIn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, service.config.ExchangeTimeout)
	defer cancel()

	response, err := service.backend.Login(ctx, email, password)
	if err != nil {
		return nil, service.fail(ctx, lifecycle, ProviderCredentials, err)
	}

	return service.completeCredentials(ctx, lifecycle, email, response.Token)
}

// RegisterInput holds the data required to create a credentials account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register creates a backend account and signs the new user in.

Returns:
  - *Session: The newly created record
  - error: Backend rejection (e.g. duplicate email), INVALID_TOKEN, or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	lifecycle, err := beginSignIn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, service.config.ExchangeTimeout)
	defer cancel()

	response, err := service.backend.Register(ctx, backend.RegisterRequest{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return nil, service.fail(ctx, lifecycle, ProviderCredentials, err)
	}

	return service.completeCredentials(ctx, lifecycle, input.Email, response.Token)
}

// completeCredentials decodes a backend-issued token and establishes the session.
func (service *Service) completeCredentials(ctx context.Context, lifecycle *Lifecycle, claimedEmail, token string) (*Session, error) {
	identity, err := DecodeCredentialToken(token)
	if err != nil {
		return nil, service.fail(ctx, lifecycle, ProviderCredentials, err)
	}

	// The token is authoritative for the identity; a mismatch is only worth a log line.
	if claimedEmail != "" && !sameEmail(claimedEmail, identity.Email) {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "credential_email_mismatch",
			slog.String("subject_id", identity.SubjectID),
		)
	}

	return service.establish(ctx, lifecycle, Update{Source: SourceCredentials, Identity: identity, Token: token})
}

// # OAuth Flow

/*
StartOAuth prepares the provider redirect.

It stores the state value and PKCE verifier so the callback can prove it
belongs to this browser's attempt.

Parameters:
  - ctx: context.Context
  - provider: Provider
  - callbackURL: string (Where to land after sign-in; may be empty)

Returns:
  - string: Provider consent URL
  - error: NOT_FOUND for unknown providers, storage errors
*/
func (service *Service) StartOAuth(ctx context.Context, provider Provider, callbackURL string) (string, error) {
	oauthProvider, ok := service.providers.Get(provider)
	if !ok {
		return "", apperr.NotFound("Sign-in provider")
	}

	state, err := sec.GenerateSecureToken(OAuthStateLength)
	if err != nil {
		return "", apperr.Internal(err)
	}
	verifier := oauth2.GenerateVerifier()

	pending := PendingState{
		Provider:    provider,
		Verifier:    verifier,
		CallbackURL: callbackURL,
		CreatedAt:   service.now(),
	}
	if err := service.pending.Save(ctx, state, pending, OAuthStateTTL); err != nil {
		return "", apperr.Internal(fmt.Errorf("auth_service_oauth_state_failed: %w", err))
	}

	return oauthProvider.AuthCodeURL(state, verifier), nil
}

/*
CompleteOAuth redeems the callback of a flow started by [Service.StartOAuth].

Returns:
  - *Session: The newly created record
  - string: The callback URL recorded at start
  - error: OAUTH_EXCHANGE_FAILED for any failure
*/
func (service *Service) CompleteOAuth(ctx context.Context, provider Provider, state, code string) (*Session, string, error) {
	lifecycle, err := beginSignIn()
	if err != nil {
		return nil, "", err
	}

	oauthProvider, ok := service.providers.Get(provider)
	if !ok {
		return nil, "", service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(fmt.Errorf("unknown provider %q", provider)))
	}

	if state == "" || code == "" {
		return nil, "", service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(errors.New("callback without state or code")))
	}

	pending, err := service.pending.Consume(ctx, state)
	if err != nil {
		return nil, "", service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(fmt.Errorf("redeem state: %w", err)))
	}
	if pending.Provider != provider {
		return nil, "", service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(errors.New("state issued for another provider")))
	}

	session, err := service.signInWithOAuth(ctx, lifecycle, oauthProvider, code, pending.Verifier)
	if err != nil {
		return nil, "", err
	}
	return session, pending.CallbackURL, nil
}

// signInWithOAuth exchanges the code, upserts the backend account and
// establishes the session.
func (service *Service) signInWithOAuth(ctx context.Context, lifecycle *Lifecycle, oauthProvider OAuthProvider, code, verifier string) (*Session, error) {
	provider := oauthProvider.Name()

	ctx, cancel := context.WithTimeout(ctx, service.config.ExchangeTimeout)
	defer cancel()

	// 1. Provider code exchange
	raw, err := oauthProvider.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(err))
	}

	// 2. Normalization of the provider profile
	profile, err := Normalize(raw)
	if err != nil {
		return nil, service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(err))
	}

	// 3. Backend account upsert
	response, err := service.backend.UpsertOAuth(ctx, backend.OAuthUser{
		Email:    profile.Email,
		Name:     profile.Name,
		Provider: string(profile.Provider),
	})
	if err != nil {
		return nil, service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(err))
	}
	if response.Token == "" {
		return nil, service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(errors.New("backend upsert returned no token")))
	}

	identity := Identity{
		SubjectID:   oauthSubject(response),
		Email:       profile.Email,
		DisplayName: profile.Name,
		Provider:    profile.Provider,
	}

	return service.establish(ctx, lifecycle, Update{Source: SourceOAuth, Identity: identity, Token: response.Token})
}

// oauthSubject prefers the account ID in the upsert reply and falls back to the
// token's 'sub' claim.
func oauthSubject(response *backend.TokenResponse) string {
	if id := response.UserID.String(); id != "" {
		return id
	}
	if identity, err := DecodeCredentialToken(response.Token); err == nil {
		return identity.SubjectID
	}
	return ""
}

// # Session Establishment

// establish merges the stage outputs and persists a fresh session.
func (service *Service) establish(ctx context.Context, lifecycle *Lifecycle, updates ...Update) (*Session, error) {
	identity, token, err := Merge(updates...)
	if err != nil {
		provider := providerOf(updates)
		if provider.IsOAuth() {
			return nil, service.fail(ctx, lifecycle, provider, apperr.OAuthExchangeFailed(err))
		}
		return nil, service.fail(ctx, lifecycle, provider, apperr.InvalidToken(err))
	}

	createdAt := service.now()
	session := &Session{
		ID:           uuid.New(),
		Identity:     identity,
		BackendToken: token,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(service.config.SessionTTL),
	}

	// Persist outside the exchange deadline so a slow provider cannot leave a half-written session.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if !lifecycle.State().CanTransition(StateActive) {
		return nil, service.fail(ctx, lifecycle, identity.Provider, apperr.Internal(
			fmt.Errorf("auth: sign-in cannot complete from state %s", lifecycle.State())))
	}

	if err := service.sessions.Create(storeCtx, session); err != nil {
		return nil, service.fail(ctx, lifecycle, identity.Provider, apperr.Internal(fmt.Errorf("auth_service_session_create_failed: %w", err)))
	}

	if err := lifecycle.Transition(StateActive); err != nil {
		_ = service.sessions.Delete(storeCtx, session.ID)
		return nil, service.fail(ctx, lifecycle, identity.Provider, apperr.Internal(err))
	}

	service.record(identity.Provider, lifecycle.State())
	ctxutil.GetLogger(ctx).InfoContext(ctx, "signin_succeeded",
		slog.String("provider", string(identity.Provider)),
		slog.String("subject_id", identity.SubjectID),
		slog.String("state", lifecycle.State().String()),
	)

	return session, nil
}

// fail moves the attempt to the failed state, records it, and returns err.
func (service *Service) fail(ctx context.Context, lifecycle *Lifecycle, provider Provider, err error) error {
	logger := ctxutil.GetLogger(ctx)

	if transitionErr := lifecycle.Transition(StateFailed); transitionErr != nil {
		logger.ErrorContext(ctx, "signin_transition_rejected", slog.Any("error", transitionErr))
	}
	service.record(provider, lifecycle.State())

	attrs := []any{
		slog.String("provider", string(provider)),
		slog.String("state", lifecycle.State().String()),
		slog.Any("error", err),
	}
	if appErr := apperr.As(err); appErr != nil && appErr.Cause != nil {
		attrs = append(attrs, slog.Any("cause", appErr.Cause))
	}
	logger.WarnContext(ctx, "signin_failed", attrs...)

	return err
}

// record reports the attempt with the outcome implied by its final state.
func (service *Service) record(provider Provider, state State) {
	if service.recorder == nil {
		return
	}

	outcome := metrics.OutcomeFailure
	if state == StateActive {
		outcome = metrics.OutcomeSuccess
	}
	service.recorder.SignIn(string(provider), outcome)
}

// beginSignIn starts the lifecycle of one sign-in attempt.
func beginSignIn() (*Lifecycle, error) {
	lifecycle := NewLifecycle()
	if err := lifecycle.Transition(StateAuthenticating); err != nil {
		return nil, apperr.Internal(err)
	}
	return lifecycle, nil
}

// sameEmail compares two addresses caselessly, Unicode aware.
func sameEmail(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

func providerOf(updates []Update) Provider {
	for _, update := range updates {
		if update.Identity.Provider != "" {
			return update.Identity.Provider
		}
	}
	return ""
}

// # Session Resolution & Teardown

/*
Resolve loads and materializes the session behind a verified cookie.

Returns:
  - *View: Materialized session
  - error: apperr.NotFound if the session is gone, or storage errors
*/
func (service *Service) Resolve(ctx context.Context, sessionID string) (*View, error) {
	session, err := service.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(service.now()) {
		return nil, apperr.NotFound("Session")
	}
	return Materialize(ctx, session), nil
}

/*
SignOut ends the session. The backend is told first, best-effort; the local
record is deleted regardless of the backend's answer.
*/
func (service *Service) SignOut(ctx context.Context, view *View) error {
	if !view.Authenticated() {
		return nil
	}

	if view.BackendToken() != "" {
		if err := service.backend.Logout(ctx, view); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "backend_logout_failed", slog.Any("error", err))
		}
	}

	return service.EndSession(ctx, view.SessionID(), ReasonLogout)
}

// EndSession deletes a session and records why.
func (service *Service) EndSession(ctx context.Context, sessionID, reason string) error {
	return endSession(ctx, service.sessions, service.recorder, sessionID, reason)
}

// InvalidateOnUnauthorized returns the hook the backend client runs when the
// backend rejects a session's token. It only needs the store, so it can be
// wired before the [Service] exists.
func InvalidateOnUnauthorized(sessions SessionRepository, recorder Recorder) func(ctx context.Context, sessionID string) error {
	return func(ctx context.Context, sessionID string) error {
		return endSession(ctx, sessions, recorder, sessionID, ReasonUnauthorized)
	}
}

func endSession(ctx context.Context, sessions SessionRepository, recorder Recorder, sessionID, reason string) error {
	if err := sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("auth_service_session_delete_failed: %w", err)
	}

	if recorder != nil {
		recorder.SessionTeardown(reason)
	}
	ctxutil.GetLogger(ctx).InfoContext(ctx, "session_ended",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
	return nil
}
