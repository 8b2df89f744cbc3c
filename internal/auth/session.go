// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Record

// Session is the server-side record behind a browser cookie. It is only ever
// created by the sign-in pipeline and never updated in place; re-login creates
// a fresh record.
type Session struct {
	ID           string    `json:"id"`
	Identity     Identity  `json:"identity"`
	BackendToken string    `json:"backend_token"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// # Materialized View

// View is the per-request projection of a [Session]. It is what handlers and
// the backend client receive; it is never persisted.
//
// A nil *View means the request is anonymous. All methods are nil-safe so a
// nil view can be passed straight to the backend client.
type View struct {
	ID        string    `json:"-"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
	// Token is absent (never a placeholder) when the record has none.
	Token string `json:"backend_token,omitempty"`
}

// SessionID returns the ID of the underlying record.
func (v *View) SessionID() string {
	if v == nil {
		return ""
	}
	return v.ID
}

// BackendToken returns the bearer token, or "" when none is available.
func (v *View) BackendToken() string {
	if v == nil {
		return ""
	}
	return v.Token
}

// SubjectID returns the backend account ID, used by the request logger.
func (v *View) SubjectID() string {
	if v == nil {
		return ""
	}
	return v.Identity.SubjectID
}

// Authenticated reports whether the view represents a signed-in user.
func (v *View) Authenticated() bool {
	return v != nil && v.ID != ""
}
