// Package store is the Local Store: one bookmark list per partition plus
// the sync connection descriptor, persisted in a key-value backend that
// provides atomic single-key set.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// KV is the key-value backend under the Local Store.
type KV interface {
	// Get returns the value at key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value at key in a single write.
	Set(ctx context.Context, key string, value []byte) error
}

// Keys are the backend keys of the partitions and of the sync config.
type Keys struct {
	Private string
	Public  string
	Config  string
}

// DefaultKeys match the localStorage keys of the web client.
var DefaultKeys = Keys{
	Private: "hajimi_bookmarks_private",
	Public:  "hajimi_bookmarks_public",
	Config:  "hajimi_sync_config",
}

// Store owns the materialized bookmark lists.
type Store struct {
	kv     KV
	keys   Keys
	ids    domain.IDGenerator
	logger logger.Logger
}

// New builds a store over kv. ids may be nil for the random base-36 generator.
func New(kv KV, keys Keys, ids domain.IDGenerator, log logger.Logger) *Store {
	if ids == nil {
		ids = domain.Base36IDs{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{kv: kv, keys: keys, ids: ids, logger: log}
}

func (s *Store) key(p domain.Partition) string {
	if p == domain.Public {
		return s.keys.Public
	}
	return s.keys.Private
}

// Load returns the list stored for p. A missing key or a payload that does
// not parse yields an empty list; only backend failures are returned.
func (s *Store) Load(ctx context.Context, p domain.Partition) ([]domain.Bookmark, error) {
	data, ok, err := s.kv.Get(ctx, s.key(p))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s bookmarks: %w", p, err)
	}
	if !ok || len(data) == 0 {
		return []domain.Bookmark{}, nil
	}

	var list []domain.Bookmark
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("stored bookmarks are corrupted, treating as empty",
			logger.String("partition", p.String()),
			logger.Error(err))
		return []domain.Bookmark{}, nil
	}
	if list == nil {
		list = []domain.Bookmark{}
	}
	return list, nil
}

// Save replaces the whole list stored for p.
func (s *Store) Save(ctx context.Context, p domain.Partition, list []domain.Bookmark) error {
	if list == nil {
		list = []domain.Bookmark{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(p), data); err != nil {
		return fmt.Errorf("failed to save %s bookmarks: %w", p, err)
	}
	return nil
}

// LoadConfig returns the stored sync config, or nil when none (or an
// unreadable one) is stored.
func (s *Store) LoadConfig(ctx context.Context) (*domain.SyncConfig, error) {
	data, ok, err := s.kv.Get(ctx, s.keys.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync config: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var cfg domain.SyncConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Warn("stored sync config is corrupted, ignoring", logger.Error(err))
		return nil, nil
	}
	return &cfg, nil
}

// SaveConfig replaces the stored sync config.
func (s *Store) SaveConfig(ctx context.Context, cfg domain.SyncConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sync config: %w", err)
	}
	if err := s.kv.Set(ctx, s.keys.Config, data); err != nil {
		return fmt.Errorf("failed to save sync config: %w", err)
	}
	return nil
}

// GenerateID returns a short random id. No uniqueness check is performed.
func (s *Store) GenerateID() string {
	return s.ids.New()
}

// IDs returns the generator behind GenerateID.
func (s *Store) IDs() domain.IDGenerator { return s.ids }
