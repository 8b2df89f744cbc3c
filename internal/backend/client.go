// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend is the gateway's only way of talking to the financial-data
REST API.

Every call goes through [Client.Do], which enforces the authorization policy:

  - Public endpoints (login, register, OAuth upsert) are sent without credentials.
  - Every other call needs a session carrying a backend token. Without one the
    call fails locally with NO_SESSION_TOKEN and nothing is sent.
  - A 401 on a protected call tears the session down through the configured
    hook and fails with UNAUTHORIZED. No retry is attempted.

The session is always passed in explicitly by the caller.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
	"github.com/taibuivan/finscope/internal/platform/metrics"
)

// maxResponseBytes caps how much of a backend reply is read.
const maxResponseBytes = 8 << 20

// # Endpoints

const (
	PathLogin      = "/users/login"
	PathRegister   = "/users/register"
	PathOAuth      = "/users/oauth"
	PathLogout     = "/users/logout"
	PathMe         = "/users/me"
	PathCompanies  = "/users/companies"
	PathFinancials = "/users/companies/data"
	PathDeleteUser = "/users/delete"
	PathStocks     = "/api/stocks"
)

// publicPaths may be called without a session. Matching is on the exact path.
var publicPaths = map[string]struct{}{
	PathLogin:    {},
	PathRegister: {},
	PathOAuth:    {},
}

// IsPublic reports whether path is on the unauthenticated allow-list.
// Any query string is ignored.
func IsPublic(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	_, ok := publicPaths[path]
	return ok
}

// # Collaborators

// Session is the view of the browser session the authorizer needs.
type Session interface {
	SessionID() string
	BackendToken() string
}

// UnauthorizedHook runs when the backend rejects a session's token.
type UnauthorizedHook func(ctx context.Context, sessionID string) error

// Recorder observes every call. [*metrics.Metrics] satisfies it.
type Recorder interface {
	BackendRequest(method, outcome string, elapsed time.Duration)
}

// Client issues authorized calls against the backend REST API.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	onUnauthorized UnauthorizedHook
	recorder       Recorder
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithUnauthorizedHook sets the teardown hook run on a backend 401.
func WithUnauthorizedHook(hook UnauthorizedHook) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

// WithRecorder sets the call observer.
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) { c.recorder = recorder }
}

/*
NewClient creates a Client for the API rooted at baseURL.

Parameters:
  - baseURL: string (e.g. "http://backend:8000")
  - timeout: time.Duration (Per-call deadline, including reading the body)

Returns:
  - *Client
  - error: If baseURL is not an absolute http(s) URL
*/
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", baseURL)
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

/*
Do performs one call and decodes a JSON reply into out (if non-nil).

Parameters:
  - ctx: context.Context
  - session: Session (May be nil for public endpoints)
  - method: string
  - path: string (Backend path, optionally with a query string)
  - body: any (JSON-encoded when non-nil)
  - out: any (Decode target, or nil to discard the reply)

Returns:
  - error: NO_SESSION_TOKEN, UNAUTHORIZED, UPSTREAM_ERROR, or a mirrored 4xx
*/
func (client *Client) Do(ctx context.Context, session Session, method, path string, body, out any) error {
	startTime := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		if client.recorder != nil {
			client.recorder.BackendRequest(method, outcome, time.Since(startTime))
		}
	}()

	public := IsPublic(path)

	// 1. Authorization precondition (no network traffic on failure)
	var token string
	if !public {
		if session != nil {
			token = session.BackendToken()
		}
		if token == "" {
			outcome = metrics.OutcomeNoToken
			return apperr.NoSessionToken()
		}
	}

	// 2. Build the request
	request, err := client.newRequest(ctx, method, path, body)
	if err != nil {
		outcome = metrics.OutcomeUpstreamFailed
		return apperr.Internal(err)
	}
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	// 3. Round-trip
	response, err := client.httpClient.Do(request)
	if err != nil {
		outcome = metrics.OutcomeUpstreamFailed
		return apperr.Upstream(fmt.Errorf("backend_%s_failed: %w", strings.ToLower(method), err))
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		outcome = metrics.OutcomeUpstreamFailed
		return apperr.Upstream(fmt.Errorf("backend_read_failed: %w", err))
	}

	// 4. Status policy
	switch {
	case response.StatusCode == http.StatusUnauthorized && !public:
		outcome = metrics.OutcomeUnauthorized
		client.teardown(ctx, session, path)
		return apperr.Unauthorized("Your session has expired. Please sign in again.")

	case response.StatusCode >= 500:
		outcome = metrics.OutcomeUpstreamFailed
		return apperr.Upstream(fmt.Errorf("backend %s %s: status %d", method, path, response.StatusCode))

	case response.StatusCode >= 400:
		outcome = metrics.OutcomeRejected
		return apperr.Rejected(response.StatusCode, detailMessage(response.StatusCode, payload))
	}

	// 5. Decode
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		outcome = metrics.OutcomeUpstreamFailed
		return apperr.Upstream(fmt.Errorf("backend_decode_failed: %w", err))
	}
	return nil
}

func (client *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target := client.baseURL.String() + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend_encode_failed: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("backend_request_failed: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set(constants.HeaderContentType, "application/json")
	}
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		request.Header.Set(constants.HeaderXRequestID, requestID)
	}
	return request, nil
}

// teardown runs the unauthorized hook. A failing hook is logged, the caller
// still receives UNAUTHORIZED.
func (client *Client) teardown(ctx context.Context, session Session, path string) {
	logger := ctxutil.GetLogger(ctx)
	logger.WarnContext(ctx, "backend_unauthorized", slog.String("backend_path", path))

	if client.onUnauthorized == nil || session == nil || session.SessionID() == "" {
		return
	}

	// The request context may already be cancelled; teardown must still happen.
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := client.onUnauthorized(hookCtx, session.SessionID()); err != nil {
		logger.ErrorContext(ctx, "session_teardown_failed", slog.Any("error", err))
	}
}

// detailMessage extracts FastAPI's "detail" field, which is either a string or
// a list of validation issues.
func detailMessage(status int, payload []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || len(envelope.Detail) == 0 {
		return http.StatusText(status)
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil && text != "" {
		return text
	}

	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil && len(issues) > 0 && issues[0].Msg != "" {
		return issues[0].Msg
	}

	return http.StatusText(status)
}

// IsTeardown reports whether err means the session is gone and the browser
// must re-authenticate.
func IsTeardown(err error) bool {
	return errors.Is(err, apperr.Unauthorized(""))
}
