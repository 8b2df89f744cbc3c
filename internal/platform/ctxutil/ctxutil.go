// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/finscope/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Identity

// Subject is implemented by whatever the session layer stores in context.
// It lets cross-cutting middleware log the caller without importing the
// session package.
type Subject interface {
	SubjectID() string
}

// GetSubjectID returns the subject of the session attached to ctx, or "".
func GetSubjectID(ctx context.Context) string {
	subject, ok := ctx.Value(ctxkey.KeySession).(Subject)
	if !ok || subject == nil {
		return ""
	}
	return subject.SubjectID()
}

// WithSubjectSlot installs a writable slot that later middleware fills via
// [RecordSubject]. Outer middleware reads the slot after the handler returns.
func WithSubjectSlot(ctx context.Context) (context.Context, *string) {
	slot := new(string)
	return context.WithValue(ctx, ctxkey.KeySubjectSlot, slot), slot
}

// RecordSubject stores subjectID in the slot installed by [WithSubjectSlot], if any.
func RecordSubject(ctx context.Context, subjectID string) {
	if slot, ok := ctx.Value(ctxkey.KeySubjectSlot).(*string); ok && slot != nil {
		*slot = subjectID
	}
}
