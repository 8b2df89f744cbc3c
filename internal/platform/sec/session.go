// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives for the browser session.
//
// # Architecture
//
// This package isolates security-sensitive code (cookie signing, random
// identifiers) from the sign-in flows. The browser never sees the backend
// token; it only holds a signed reference to the server-side session record.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for any cookie that fails verification.
var ErrInvalidSession = errors.New("sec: invalid session cookie")

// SessionClaims is the payload embedded inside the session cookie.
//
// Only the session ID travels to the browser. Identity and backend token stay
// in the session store.
type SessionClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sid"`
}

// SessionSigner signs and verifies session cookies using HS256.
type SessionSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSessionSigner creates a new SessionSigner.
func NewSessionSigner(secret, issuer string) (*SessionSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: session secret must be at least 32 bytes")
	}
	return &SessionSigner{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

/*
Sign produces the cookie value for a session.

Parameters:
  - sessionID: string (Server-side session key)
  - expiresAt: time.Time (Absolute expiry, mirrors the stored record)

Returns:
  - string: Compact JWS
  - error: Signing failures
*/
func (signer *SessionSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(signer.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign session: %w", err)
	}
	return signed, nil
}

/*
Verify checks the signature, issuer and expiry of a cookie value.

Returns:
  - string: The session ID carried by the cookie
  - error: [ErrInvalidSession] wrapping the parse failure
*/
func (signer *SessionSigner) Verify(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.now),
	)

	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return signer.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidSession
	}

	return claims.SessionID, nil
}
