package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/hajimi/internal/store"
)

// Store is the Redis backend of the Local Store. Each partition is a single
// string key, written with SET so a save is atomic from the reader's side.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Get retrieves the raw value of a Local Store key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

// Set replaces the value of a Local Store key. Values never expire.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Ping reports whether Redis answers, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ store.KV = (*Store)(nil)
