package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on a Redis key per document plus a pub/sub
// channel per key for change notifications.
type RedisStore struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore constructs a Redis-backed document store.
func NewRedisStore(client redis.UniversalClient, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.L()
	}
	return &RedisStore{client: client, logger: logger}
}

func docKey(key string) string     { return "doc:" + key }
func changeChan(key string) string { return "doc:" + key + ":changes" }

// Get returns the raw document bytes.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, docKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	return raw, nil
}

// Set writes fields, merging over the existing document when merge is true,
// then publishes the resulting document to subscribers.
func (s *RedisStore) Set(ctx context.Context, key string, fields map[string]any, merge bool) error {
	doc := fields
	if merge {
		existing, err := s.Get(ctx, key)
		if err != nil && err != ErrNotFound {
			return err
		}
		if existing != nil {
			merged := make(map[string]any)
			if err := json.Unmarshal(existing, &merged); err != nil {
				return fmt.Errorf("decode existing document: %w", err)
			}
			for k, v := range fields {
				merged[k] = v
			}
			doc = merged
		}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, docKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	if err := s.client.Publish(ctx, changeChan(key), payload).Err(); err != nil {
		s.logger.Warn("publish document change failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Update merge-writes into an existing document only.
func (s *RedisStore) Update(ctx context.Context, key string, fields map[string]any) error {
	exists, err := s.client.Exists(ctx, docKey(key)).Result()
	if err != nil {
		return fmt.Errorf("check document: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.Set(ctx, key, fields, true)
}

// Subscribe pumps published document changes to onChange until released.
func (s *RedisStore) Subscribe(ctx context.Context, key string, onChange ChangeFunc, onError ErrorFunc) (Unsubscribe, error) {
	pubsub := s.client.Subscribe(ctx, changeChan(key))
	// Force the subscription onto the wire before returning so no change
	// emitted after this call is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("open subscription: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			onChange([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				s.logger.Warn("close subscription failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
