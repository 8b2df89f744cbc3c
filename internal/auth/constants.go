// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Sign-in Constraints

const (
	// OAuthStateTTL bounds how long a user may stay on the provider consent screen.
	OAuthStateTTL = 10 * time.Minute

	// OAuthStateLength is the byte length of the random state value.
	OAuthStateLength = 32

	// PasswordMinLength mirrors what the sign-up form enforces.
	PasswordMinLength = 8

	// PasswordMaxBytes is the bcrypt input limit of the backend's password hashing.
	PasswordMaxBytes = 72

	// UsernameMinLength is the shortest accepted username at registration.
	UsernameMinLength = 3

	// UsernameMaxLength is the longest accepted username at registration.
	UsernameMaxLength = 50
)

// # Teardown Reasons

const (
	ReasonLogout         = "logout"
	ReasonUnauthorized   = "unauthorized"
	ReasonAccountDeleted = "account_deleted"
	ReasonCookieFailed   = "cookie_issue_failed"
)

// # Request Fields

const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldUsername = "username"
)
