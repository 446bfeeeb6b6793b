package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed document store. It's suitable for
// multi-server deployments with shared document state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption configures RedisStore behavior.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix for document keys.
// Default: "boardsync:doc:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed document store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "boardsync:doc:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Fetch retrieves a document by name.
func (s *RedisStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: redis get: %w", err)
	}
	return data, nil
}

// Put stores a document, overwriting any previous version.
func (s *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrNameRequired
	}
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("docstore: redis set: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
