// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Session Data Access

// SessionRepository persists session records.
type SessionRepository interface {

	/*
		Create stores a new session until its ExpiresAt.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		Find returns the live session with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Session: Stored record
		  - error: apperr.NotFound if absent or expired, or storage errors
	*/
	Find(context context.Context, id string) (*Session, error)

	/*
		Delete removes the session. Deleting a missing session is not an error.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Storage errors
	*/
	Delete(context context.Context, id string) error

	// Ping reports whether the backing store is reachable.
	Ping(context context.Context) error
}

// # OAuth Pending State

// PendingState is what the start of an OAuth flow leaves behind for its callback.
type PendingState struct {
	Provider    Provider  `json:"provider"`
	Verifier    string    `json:"verifier"`
	CallbackURL string    `json:"callback_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PendingStateRepository stores OAuth pending state keyed by the state value.
type PendingStateRepository interface {

	/*
		Save stores pending state for ttl.

		Parameters:
		  - context: context.Context
		  - state: string (Random state value sent to the provider)
		  - pending: PendingState
		  - ttl: time.Duration

		Returns:
		  - error: Storage errors
	*/
	Save(context context.Context, state string, pending PendingState, ttl time.Duration) error

	/*
		Consume returns and deletes the pending state in one step, so a state
		value can be redeemed at most once.

		Returns:
		  - *PendingState
		  - error: apperr.NotFound if unknown, expired or already used
	*/
	Consume(context context.Context, state string) (*PendingState, error)
}
