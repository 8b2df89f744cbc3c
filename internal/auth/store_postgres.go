// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/database/schema"
	"github.com/taibuivan/finscope/internal/platform/dberr"
)

// PostgresSessionRepository implements SessionRepository on the auth.session table.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL-backed SessionRepository.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create inserts a new session row.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Conflict on duplicate ID, or storage errors
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.AuthSession.Table, schema.AuthSession.ColumnList(),
	)

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.Identity.SubjectID,
		session.Identity.Email,
		session.Identity.DisplayName,
		string(session.Identity.Provider),
		session.BackendToken,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return dberr.Wrap(err, "session_insert")
}

/*
Find retrieves a live session by ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Session
  - error: apperr.NotFound if absent or expired
*/
func (repository *PostgresSessionRepository) Find(context context.Context, id string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1 AND %s > now()`,
		schema.AuthSession.ColumnList(), schema.AuthSession.Table,
		schema.AuthSession.ID, schema.AuthSession.ExpiresAt,
	)

	var session Session
	var provider string

	err := repository.pool.QueryRow(context, query, id).Scan(
		&session.ID,
		&session.Identity.SubjectID,
		&session.Identity.Email,
		&session.Identity.DisplayName,
		&provider,
		&session.BackendToken,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		wrapped := dberr.Wrap(err, "session_find")
		if apperr.HasCode(wrapped, apperr.CodeNotFound) {
			return nil, apperr.NotFound("Session")
		}
		return nil, wrapped
	}

	session.Identity.Provider = Provider(provider)
	return &session, nil
}

/*
Delete removes the session row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Storage errors
*/
func (repository *PostgresSessionRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.AuthSession.Table, schema.AuthSession.ID)

	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err, "session_delete")
}

// Ping implements [SessionRepository].
func (repository *PostgresSessionRepository) Ping(context context.Context) error {
	return repository.pool.Ping(context)
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (repository *PostgresSessionRepository) PurgeExpired(context context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s <= now()`, schema.AuthSession.Table, schema.AuthSession.ExpiresAt)

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, dberr.Wrap(err, "session_purge")
	}
	return tag.RowsAffected(), nil
}

// RunJanitor purges expired rows every interval until ctx is done.
func (repository *PostgresSessionRepository) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := repository.PurgeExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "session_purge_failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.InfoContext(ctx, "session_purged", slog.Int64("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Compile-time interface checks.
var (
	_ SessionRepository      = (*PostgresSessionRepository)(nil)
	_ SessionRepository      = (*RedisSessionRepository)(nil)
	_ PendingStateRepository = (*RedisPendingStateRepository)(nil)
)
