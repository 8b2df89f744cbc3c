// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements sign-in, the browser session and the route guard.

It bridges third-party identity (Google, Twitter/X) and backend credentials into
one server-side session record that carries the backend bearer token.

Architecture:

  - Adapter: Turns provider profiles and credential tokens into an [Identity].
  - Pipeline: Each sign-in stage yields an immutable [Update]; [Merge] applies
    precedence (OAuth first) and refuses to produce a session without a token.
  - Store: [SessionRepository] persists the record (Redis or PostgreSQL). The
    browser only holds a signed reference to it.
  - Guard: [Authenticate] materializes the session per request and
    [RouteGuard] redirects anonymous visitors away from protected pages.
*/
package auth

import "strings"

// # Identity Providers

// Provider identifies how a session was established. The set is closed.
type Provider string

const (
	ProviderGoogle      Provider = "google"
	ProviderTwitter     Provider = "twitter"
	ProviderCredentials Provider = "credentials"
)

// ParseProvider maps a URL segment onto a [Provider].
func ParseProvider(raw string) (Provider, bool) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProviderGoogle, ProviderTwitter, ProviderCredentials:
		return p, true
	default:
		return "", false
	}
}

// IsOAuth reports whether the provider signs in through a redirect flow.
func (p Provider) IsOAuth() bool {
	return p == ProviderGoogle || p == ProviderTwitter
}

// Identity is the user as known to the session.
type Identity struct {
	// SubjectID is the backend account ID when known.
	SubjectID   string   `json:"subject_id,omitempty"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name,omitempty"`
	Provider    Provider `json:"provider"`
}

// localPart returns the part of an email address before '@'.
func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
