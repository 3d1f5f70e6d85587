package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/session"
)

// RedisSessionStore implements session.Store backed by Redis.
type RedisSessionStore struct {
	client redis.UniversalClient
}

var _ session.Store = (*RedisSessionStore)(nil)

// NewRedisSessionStore constructs a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(token string) string { return "session:" + token }

// Save stores the encoded session with TTL matching its expiry.
func (s *RedisSessionStore) Save(ctx context.Context, sess domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.client.Set(ctx, sessionKey(sess.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Get loads and decodes the session payload.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	bytes, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(bytes, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Delete removes the persisted session key.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
