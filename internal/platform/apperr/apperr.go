// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Finscope.

It provides a rich error type that bridges the gap between low-level transport,
storage and identity-provider errors and the JSON responses sent to the browser.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Matching: Two AppErrors are considered equal under [errors.Is] when their codes match.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeOAuthExchangeFailed = "OAUTH_EXCHANGE_FAILED"
	CodeNoSessionToken      = "NO_SESSION_TOKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
)

// AppError is the canonical error type for the Finscope gateway.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (backend URLs, raw tokens).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "INVALID_TOKEN").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] carrying the same Code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Session") // Returns "Session not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Authentication Errors

// InvalidToken creates a 401 [AppError] for a malformed credential token or one
// missing required claims. It is terminal for the sign-in attempt.
func InvalidToken(cause error) *AppError {
	return &AppError{
		Code:       CodeInvalidToken,
		Message:    "Sign-in failed",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// OAuthExchangeFailed creates a 502 [AppError] for a failed provider exchange or
// backend upsert. It is terminal for the sign-in attempt.
func OAuthExchangeFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeOAuthExchangeFailed,
		Message:    "Sign-in failed",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NoSessionToken creates a 401 [AppError] raised locally when a protected call
// is attempted without a usable backend token. It is recoverable and does not
// tear down the session.
func NoSessionToken() *AppError {
	return &AppError{
		Code:       CodeNoSessionToken,
		Message:    "No authentication token available",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Upstream creates a 502 [AppError] for backend network failures and 5xx replies.
func Upstream(cause error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    "The data service is unavailable",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// Rejected creates an [AppError] mirroring a 4xx answer from the backend.
// The message is the backend's client-safe detail. A 401 here comes from a
// public endpoint (wrong password), never from a session-bearing call.
func Rejected(status int, msg string) *AppError {
	code := CodeValidation
	switch status {
	case http.StatusUnauthorized:
		code = CodeInvalidCredentials
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusConflict:
		code = CodeConflict
	case http.StatusForbidden:
		code = CodeForbidden
	case http.StatusTooManyRequests:
		code = CodeRateLimited
	}
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: status,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
