// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/finscope/internal/platform/apperr"
)

var (
	errEmptyToken    = errors.New("credential token is empty")
	errMissingClaims = errors.New("credential token lacks sub or email")
)

/*
DecodeCredentialToken reads the identity out of a backend-issued token.

The signature is NOT verified: the backend is the only party that can check it,
and it does so on every call the token is attached to. The gateway only needs
the claims to label the session.

Parameters:
  - raw: string (Compact JWT as returned by the backend)

Returns:
  - Identity: Provider is always [ProviderCredentials]
  - error: INVALID_TOKEN if the token is malformed or lacks 'sub' or 'email'
*/
func DecodeCredentialToken(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, apperr.InvalidToken(errEmptyToken)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, apperr.InvalidToken(fmt.Errorf("decode credential token: %w", err))
	}

	subject := stringClaim(claims, "sub")
	email := stringClaim(claims, "email")
	if subject == "" || email == "" {
		return Identity{}, apperr.InvalidToken(errMissingClaims)
	}

	displayName := stringClaim(claims, "name")
	if displayName == "" {
		displayName = localPart(email)
	}

	return Identity{
		SubjectID:   subject,
		Email:       email,
		DisplayName: displayName,
		Provider:    ProviderCredentials,
	}, nil
}

// stringClaim returns a claim only when it is a non-blank string.
func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}
