// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/finscope/internal/platform/apperr"
	"github.com/taibuivan/finscope/internal/platform/constants"
)

// # Session Repository

// RedisSessionRepository implements SessionRepository using Redis.
// Each record is a JSON value whose TTL matches the session expiry.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a new Redis-backed SessionRepository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(id string) string {
	return constants.RedisPrefixSession + id
}

/*
Create stores the session with a TTL derived from ExpiresAt.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Validation or storage failures
*/
func (repository *RedisSessionRepository) Create(context context.Context, session *Session) error {
	if session.ID == "" {
		return fmt.Errorf("redis_session_create_failed: missing session id")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis_session_create_failed: expires_at must be in the future")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	if err := repository.client.Set(context, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_create_failed: %w", err)
	}

	return nil
}

/*
Find retrieves a session by ID.

Description: Returns apperr.NotFound if the session is absent or expired.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Session
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisSessionRepository) Find(context context.Context, id string) (*Session, error) {
	data, err := repository.client.Get(context, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}

	// Redis TTLs have second granularity; never hand out a record past its expiry.
	if session.Expired(time.Now()) {
		return nil, apperr.NotFound("Session")
	}

	return &session, nil
}

/*
Delete removes the session from Redis.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisSessionRepository) Delete(context context.Context, id string) error {
	if err := repository.client.Del(context, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

// Ping implements [SessionRepository].
func (repository *RedisSessionRepository) Ping(context context.Context) error {
	return repository.client.Ping(context).Err()
}

// # Pending State Repository

// RedisPendingStateRepository implements PendingStateRepository using Redis.
type RedisPendingStateRepository struct {
	client *redis.Client
}

// NewRedisPendingStateRepository creates a new Redis-backed PendingStateRepository.
func NewRedisPendingStateRepository(client *redis.Client) *RedisPendingStateRepository {
	return &RedisPendingStateRepository{client: client}
}

func pendingStateKey(state string) string {
	return constants.RedisPrefixOAuthState + state
}

// Save implements [PendingStateRepository].
func (repository *RedisPendingStateRepository) Save(context context.Context, state string, pending PendingState, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("redis_oauth_state_marshal_failed: %w", err)
	}

	if err := repository.client.Set(context, pendingStateKey(state), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth_state_set_failed: %w", err)
	}
	return nil
}

// Consume implements [PendingStateRepository] with GETDEL.
func (repository *RedisPendingStateRepository) Consume(context context.Context, state string) (*PendingState, error) {
	data, err := repository.client.GetDel(context, pendingStateKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Sign-in request")
		}
		return nil, fmt.Errorf("redis_oauth_state_get_failed: %w", err)
	}

	var pending PendingState
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("redis_oauth_state_unmarshal_failed: %w", err)
	}
	return &pending, nil
}
