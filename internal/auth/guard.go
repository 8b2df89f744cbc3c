// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/ctxkey"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
)

// # Session Context

// WithSession returns a new context carrying the materialized session.
func WithSession(ctx context.Context, view *View) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, view)
}

// SessionFrom retrieves the materialized session from the context.
//
// # Returns
//   - The [*View] if the request is authenticated.
//   - nil if the request is anonymous.
func SessionFrom(ctx context.Context) *View {
	view, ok := ctx.Value(ctxkey.KeySession).(*View)
	if !ok {
		return nil
	}
	return view
}

// # Session Resolution

// SessionResolver loads a session by ID. [*Service] satisfies it.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*View, error)
}

// Authenticate resolves the session cookie into a [*View] on the request context.
//
// # Flow
//  1. No cookie: the request proceeds as anonymous.
//  2. Invalid signature, expired cookie or missing record: the cookie is
//     cleared and the request proceeds as anonymous.
//  3. Store failure: logged, request proceeds as anonymous (fail closed).
//  4. Otherwise the materialized session is injected into the context.
func Authenticate(resolver SessionResolver, cookies *CookieManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// 1. Anonymous Access
			sessionID, present, err := cookies.Read(request)
			if !present {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Cookie Verification
			if err != nil {
				cookies.Clear(writer)
				next.ServeHTTP(writer, request)
				return
			}

			// 3. Record Lookup
			view, err := resolver.Resolve(ctx, sessionID)
			if err != nil {
				if !apperr.HasCode(err, apperr.CodeNotFound) {
					ctxutil.GetLogger(ctx).ErrorContext(ctx, "session_resolve_failed", slog.Any("error", err))
				} else {
					cookies.Clear(writer)
				}
				next.ServeHTTP(writer, request)
				return
			}

			// 4. Context Injection
			ctxutil.RecordSubject(ctx, view.SubjectID())
			next.ServeHTTP(writer, request.WithContext(WithSession(ctx, view)))
		})
	}
}

// # Route Guard

// RouteGuard keeps protected pages behind a session.
//
// Only paths matching one of the patterns are guarded; everything else is
// public to the guard. API calls still enforce their own token requirement.
type RouteGuard struct {
	patterns  []string
	loginPath string
}

// NewRouteGuard validates the [path.Match] patterns and builds the guard.
func NewRouteGuard(patterns []string, loginPath string) (*RouteGuard, error) {
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, "/"); err != nil {
			return nil, fmt.Errorf("auth: invalid protected path pattern %q: %w", pattern, err)
		}
	}
	return &RouteGuard{patterns: patterns, loginPath: loginPath}, nil
}

// Protects reports whether requestPath needs a session.
func (guard *RouteGuard) Protects(requestPath string) bool {
	cleaned := path.Clean("/" + requestPath)
	for _, pattern := range guard.patterns {
		if matched, _ := path.Match(pattern, cleaned); matched {
			return true
		}
	}
	return false
}

// Handler redirects anonymous requests for protected paths to the login page,
// remembering where the user was going.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func (guard *RouteGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if guard.Protects(request.URL.Path) && !SessionFrom(request.Context()).Authenticated() {
			target := guard.loginPath + "?" + url.Values{
				constants.CallbackQueryParam: {request.URL.RequestURI()},
			}.Encode()
			http.Redirect(writer, request, target, http.StatusFound)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
