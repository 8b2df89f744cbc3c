// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr translates pgx errors from the durable session store into
// [apperr.AppError] values.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/finscope/internal/platform/apperr"
)

// PostgreSQL SQLSTATE codes raised by the auth.session constraints.
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// ErrNotFound is returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperr.Conflict("Resource already exists")
		case checkViolation:
			// Only reachable through a programming error, e.g. an unknown provider.
			validation := apperr.ValidationError("Invalid " + pgErr.ConstraintName)
			validation.Cause = fmt.Errorf("%s: %w", action, err)
			return validation
		}
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
