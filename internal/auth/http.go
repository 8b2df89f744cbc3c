// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/finscope/internal/platform/request"
	"github.com/taibuivan/finscope/internal/platform/respond"
	"github.com/taibuivan/finscope/internal/platform/validate"
)

// Error identifiers placed on the login redirect after a failed OAuth attempt.
const (
	LoginErrorOAuthSignin   = "OAuthSignin"
	LoginErrorOAuthCallback = "OAuthCallback"
)

// # Definitions & Constructors

// Handler implements the sign-in, sign-out and session endpoints.
//
// # Scope
//
// Everything that creates or destroys the browser session goes through here.
// Reading the session on other routes is done by [Authenticate].
type Handler struct {
	authService *Service
	cookies     *CookieManager
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cookies *CookieManager) *Handler {
	return &Handler{authService: service, cookies: cookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /login                     : Credentials sign-in.
//   - POST /register                  : Account creation then sign-in.
//   - POST /logout                    : Session teardown.
//   - GET  /session                   : Current materialized session.
//   - GET  /oauth/{provider}/start    : Redirect to the provider.
//   - GET  /oauth/{provider}/callback : Provider return leg.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/register", handler.register)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)

	router.Get("/oauth/{provider}/start", handler.startOAuth)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	return router
}

// # Request & Response Payloads

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// sessionResponse is the browser-facing session. The backend token stays server-side.
type sessionResponse struct {
	Identity        Identity  `json:"identity"`
	ExpiresAt       time.Time `json:"expires_at"`
	HasBackendToken bool      `json:"has_backend_token"`
	RedirectTo      string    `json:"redirect_to,omitempty"`
}

type loginPageResponse struct {
	Credentials bool       `json:"credentials"`
	Providers   []Provider `json:"providers"`
	CallbackURL string     `json:"callbackUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
}

/*
LoginPage describes the available sign-in methods.

GET /login

Description: The browser lands here from the route guard or after a failed
OAuth attempt. The query carries the original destination and the error id.

Response:
  - 200: loginPageResponse
*/
func (handler *Handler) LoginPage(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	respond.OK(writer, loginPageResponse{
		Credentials: true,
		Providers:   handler.authService.Providers(),
		CallbackURL: safeRedirect(query.Get(constants.CallbackQueryParam)),
		Error:       query.Get("error"),
	})
}

/*
Login signs in with email and password.

POST /auth/login

Description: Forwards the credentials to the backend, decodes the returned
token into an identity and opens a session.

Request:
  - Body: loginRequest (Email, Password, CallbackURL)

Response:
  - 200: sessionResponse with the cookie set
  - 400: VALIDATION_ERROR
  - 401: INVALID_CREDENTIALS or INVALID_TOKEN
  - 502: UPSTREAM_ERROR
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.SignInWithPassword(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.issue(writer, request, session, input.CallbackURL)
}

/*
Register creates an account and signs it in.

POST /auth/register

Request:
  - Body: registerRequest (Username, Email, Password, CallbackURL)

Response:
  - 201: sessionResponse with the cookie set
  - 400: VALIDATION_ERROR or a backend rejection
  - 409: CONFLICT when the email is taken
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, UsernameMinLength).
		MaxLen(FieldUsername, input.Username, UsernameMaxLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !handler.issueCookie(writer, request, session) {
		return
	}
	respond.Created(writer, toSessionResponse(session, safeRedirect(input.CallbackURL)))
}

/*
Logout ends the current session.

POST /auth/logout

Description: Tells the backend (best-effort), deletes the stored session and
clears the cookie. Anonymous callers get the same answer.

Response:
  - 204: No Content
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.SignOut(request.Context(), SessionFrom(request.Context())); err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	handler.cookies.Clear(writer)
	respond.NoContent(writer)
}

/*
Session returns the materialized session of the caller.

GET /auth/session

Response:
  - 200: sessionResponse, or null data when anonymous
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	view := SessionFrom(request.Context())
	if !view.Authenticated() {
		respond.OK(writer, nil)
		return
	}

	respond.OK(writer, sessionResponse{
		Identity:        view.Identity,
		ExpiresAt:       view.ExpiresAt,
		HasBackendToken: view.BackendToken() != "",
	})
}

/*
StartOAuth redirects the browser to the provider consent screen.

GET /auth/oauth/{provider}/start?callbackUrl=/profile

Response:
  - 302: Provider authorization URL
  - 404: Unknown or disabled provider
*/
func (handler *Handler) startOAuth(writer http.ResponseWriter, request *http.Request) {
	provider, ok := ParseProvider(requestutil.Param(request, "provider"))
	if !ok || !provider.IsOAuth() {
		respond.Error(writer, request, apperr.NotFound("Sign-in provider"))
		return
	}

	callbackURL := safeRedirect(request.URL.Query().Get(constants.CallbackQueryParam))

	authURL, err := handler.authService.StartOAuth(request.Context(), provider, callbackURL)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}
	handler.cookies.setOAuthState(writer, parsed.Query().Get("state"))

	http.Redirect(writer, request, authURL, http.StatusFound)
}

/*
OAuthCallback completes the provider flow.

GET /auth/oauth/{provider}/callback?state=...&code=...

Description: The state must match both the stored attempt and the browser's
state cookie. On success the session cookie is set and the browser goes to the
recorded destination (default /profile). Any failure lands on /login with an
error id and no session.

Response:
  - 302: Destination or /login?error=...
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	browserState := handler.cookies.takeOAuthState(writer, request)

	provider, ok := ParseProvider(requestutil.Param(request, "provider"))
	if !ok || !provider.IsOAuth() {
		redirectToLogin(writer, request, LoginErrorOAuthCallback)
		return
	}

	// The user declined consent or the provider reported an error.
	if query.Get("error") != "" {
		redirectToLogin(writer, request, LoginErrorOAuthCallback)
		return
	}

	state := query.Get("state")
	if state == "" || state != browserState {
		redirectToLogin(writer, request, LoginErrorOAuthCallback)
		return
	}

	session, callbackURL, err := handler.authService.CompleteOAuth(request.Context(), provider, state, query.Get("code"))
	if err != nil {
		redirectToLogin(writer, request, LoginErrorOAuthSignin)
		return
	}

	if !handler.issueCookie(writer, request, session) {
		return
	}
	http.Redirect(writer, request, safeRedirect(callbackURL), http.StatusFound)
}

// # Backend Error Translation

// RespondError writes err for a handler that called the backend on behalf of a
// session. A teardown (the backend rejected the token) clears the cookie and
// sends the browser to the login page; everything else is a JSON error.
func (handler *Handler) RespondError(writer http.ResponseWriter, request *http.Request, err error) {
	if backend.IsTeardown(err) {
		handler.cookies.Clear(writer)
		http.Redirect(writer, request, constants.LoginPath, http.StatusSeeOther)
		return
	}
	respond.Error(writer, request, err)
}

// EndSession deletes the caller's session and clears the cookie.
func (handler *Handler) EndSession(writer http.ResponseWriter, request *http.Request, reason string) error {
	view := SessionFrom(request.Context())
	if view.Authenticated() {
		if err := handler.authService.EndSession(request.Context(), view.SessionID(), reason); err != nil {
			return err
		}
	}
	handler.cookies.Clear(writer)
	return nil
}

// # Helpers

func (handler *Handler) issue(writer http.ResponseWriter, request *http.Request, session *Session, callbackURL string) {
	if !handler.issueCookie(writer, request, session) {
		return
	}
	respond.OK(writer, toSessionResponse(session, safeRedirect(callbackURL)))
}

// issueCookie sets the session cookie. When that fails the stored record is
// deleted, since no browser could ever present it, and an error is written.
func (handler *Handler) issueCookie(writer http.ResponseWriter, request *http.Request, session *Session) bool {
	err := handler.cookies.Issue(writer, session)
	if err == nil {
		return true
	}

	if endErr := handler.authService.EndSession(request.Context(), session.ID, ReasonCookieFailed); endErr != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "orphan_session_delete_failed",
			slog.String("session_id", session.ID),
			slog.Any("error", endErr),
		)
	}
	respond.Error(writer, request, apperr.Internal(fmt.Errorf("auth_cookie_issue_failed: %w", err)))
	return false
}

func toSessionResponse(session *Session, redirectTo string) sessionResponse {
	return sessionResponse{
		Identity:        session.Identity,
		ExpiresAt:       session.ExpiresAt,
		HasBackendToken: session.BackendToken != "",
		RedirectTo:      redirectTo,
	}
}

func redirectToLogin(writer http.ResponseWriter, request *http.Request, reason string) {
	target := constants.LoginPath + "?" + url.Values{"error": {reason}}.Encode()
	http.Redirect(writer, request, target, http.StatusFound)
}

// safeRedirect keeps post-login navigation on this origin.
// Anything that is not a local absolute path falls back to the profile page.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return constants.ProfilePath
	}
	if parsed, err := url.Parse(target); err != nil || parsed.Host != "" || parsed.Scheme != "" {
		return constants.ProfilePath
	}
	return target
}
