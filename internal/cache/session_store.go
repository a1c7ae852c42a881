// Package cache persists live session snapshots in redis. The engine
// hands over its entire serializable state on every transition and
// reloads it at startup, which is the whole persistence contract for
// an in-progress session.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKey = "assessment:session"

// SessionStore saves and restores SessionState snapshots.
type SessionStore interface {
	Save(ctx context.Context, state *models.SessionState) error
	Load(ctx context.Context) (*models.SessionState, error)
	Clear(ctx context.Context) error
}

type redisSessionStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, logger *slog.Logger) SessionStore {
	return &redisSessionStore{
		client: client,
		logger: logger,
		ttl:    0, // snapshots do not expire on their own
	}
}

func (s *redisSessionStore) Save(ctx context.Context, state *models.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey, raw, s.ttl).Err(); err != nil {
		s.logger.Error("failed to save session snapshot", "error", err)
		return err
	}
	return nil
}

// Load returns the stored snapshot, or nil when none exists.
func (s *redisSessionStore) Load(ctx context.Context) (*models.SessionState, error) {
	raw, err := s.client.Get(ctx, sessionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding unreadable session snapshot", "error", err)
		return nil, nil
	}
	return &state, nil
}

func (s *redisSessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, sessionKey).Err()
}
