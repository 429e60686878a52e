package localcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusBooks/business/reco"

	"github.com/allegro/bigcache/v3"
)

// PoolStore keeps encoded pools in process memory. Entries live for the
// cache's life window; per-key TTLs are enforced by the pool payload itself.
type PoolStore struct {
	cache *bigcache.BigCache
}

var _ reco.PoolStore = (*PoolStore)(nil)

// NewPoolStore creates a store whose entries expire after lifeWindow.
// maxMB <= 0 leaves the size unbounded.
func NewPoolStore(ctx context.Context, lifeWindow time.Duration, maxMB int) (*PoolStore, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.CleanWindow = lifeWindow
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 64
	cfg.HardMaxCacheSize = max(maxMB, 0)
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init pool cache: %w", err)
	}

	return &PoolStore{cache: cache}, nil
}

func (s *PoolStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	val, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read pool cache: %w", err)
	}

	return val, true, nil
}

func (s *PoolStore) Save(ctx context.Context, key string, payload []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := s.cache.Set(key, payload); err != nil {
		return fmt.Errorf("failed to write pool cache: %w", err)
	}

	return nil
}

func (s *PoolStore) Close() error {
	return s.cache.Close()
}
