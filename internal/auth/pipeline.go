// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/taibuivan/finscope/internal/platform/ctxutil"
)

// # Sign-in Pipeline

// Source names the stage that produced an [Update].
type Source int

const (
	// SourceOAuth is the provider exchange followed by the backend upsert.
	SourceOAuth Source = iota
	// SourceCredentials is the decode of a backend-issued credentials token.
	SourceCredentials
)

func (s Source) String() string {
	switch s {
	case SourceOAuth:
		return "oauth"
	case SourceCredentials:
		return "credentials"
	default:
		return "unknown"
	}
}

// Update is the immutable output of one sign-in stage.
type Update struct {
	Source   Source
	Identity Identity
	Token    string
}

var (
	// ErrNoUpdates is returned by [Merge] when no stage produced anything.
	ErrNoUpdates = errors.New("auth: no sign-in updates to merge")

	// ErrNoBackendToken is returned by [Merge] when no stage produced a token.
	// A session without a token is never created.
	ErrNoBackendToken = errors.New("auth: sign-in produced no backend token")
)

/*
Merge folds stage outputs into the identity and token of a new session.

OAuth-sourced values are applied first. Credentials-sourced values only fill
fields that are still empty, so they can never overwrite what the OAuth stage
produced. The order of the arguments does not matter.

Returns:
  - Identity: Merged identity
  - string: Backend token
  - error: [ErrNoUpdates] or [ErrNoBackendToken]
*/
func Merge(updates ...Update) (Identity, string, error) {
	if len(updates) == 0 {
		return Identity{}, "", ErrNoUpdates
	}

	ordered := slices.Clone(updates)
	slices.SortStableFunc(ordered, func(a, b Update) int { return int(a.Source) - int(b.Source) })

	var identity Identity
	var token string

	for _, update := range ordered {
		fill(&token, update.Token)
		fill(&identity.SubjectID, update.Identity.SubjectID)
		fill(&identity.Email, update.Identity.Email)
		fill(&identity.DisplayName, update.Identity.DisplayName)
		if identity.Provider == "" {
			identity.Provider = update.Identity.Provider
		}
	}

	if token == "" {
		return Identity{}, "", ErrNoBackendToken
	}
	return identity, token, nil
}

func fill(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

/*
Materialize projects a stored session into the per-request [View].

The token is copied as is. When the record has none, the view leaves it empty
so the backend client reports NO_SESSION_TOKEN instead of sending an
unauthenticated request. That state is logged because the pipeline should
never persist such a record.
*/
func Materialize(ctx context.Context, session *Session) *View {
	if session == nil {
		return nil
	}

	if session.BackendToken == "" {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_without_backend_token",
			slog.String("session_id", session.ID),
			slog.String("provider", string(session.Identity.Provider)),
		)
	}

	return &View{
		ID:        session.ID,
		Identity:  session.Identity,
		ExpiresAt: session.ExpiresAt,
		Token:     session.BackendToken,
	}
}
