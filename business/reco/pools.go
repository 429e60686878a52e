package reco

import (
	"context"
	"fmt"
	"time"

	"campusBooks/pkg/logger"

	json "github.com/goccy/go-json"
)

// PoolStore persists encoded pools. Load reports a miss with ok=false.
type PoolStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// CachedPool is a popular or fresh pool shared across requests until it expires.
type CachedPool struct {
	Entries    []PoolEntry   `json:"entries"`
	ComputedAt time.Time     `json:"computed_at"`
	TTL        time.Duration `json:"ttl"`
	WindowDays int           `json:"window_days"`
	Size       int           `json:"size"`
}

// Valid reports whether the pool is unexpired and was built with the same window and size.
func (p CachedPool) Valid(now time.Time, windowDays, size int) bool {
	if p.WindowDays != windowDays || p.Size != size {
		return false
	}
	return now.Sub(p.ComputedAt) < p.TTL
}

type poolSpec struct {
	name       string
	windowDays int
	size       int
	ttl        time.Duration
}

func (s poolSpec) key() string {
	return fmt.Sprintf("reco:pool:%s", s.name)
}

// PoolCache is get-or-compute over a PoolStore. Concurrent misses may each
// recompute the pool; the last write wins and staleness stays bounded by the TTL.
type PoolCache struct {
	store PoolStore
	now   func() time.Time
}

func NewPoolCache(store PoolStore, now func() time.Time) *PoolCache {
	if now == nil {
		now = time.Now
	}
	return &PoolCache{store: store, now: now}
}

// GetOrCompute returns the cached pool when valid, otherwise computes and stores it.
// A compute failure yields an empty pool; a store failure only costs the cache.
func (c *PoolCache) GetOrCompute(
	ctx context.Context,
	spec poolSpec,
	compute func(ctx context.Context) ([]PoolEntry, error),
) []PoolEntry {
	now := c.now()
	key := spec.key()

	if c.store != nil {
		raw, ok, err := c.store.Load(ctx, key)
		switch {
		case err != nil:
			logger.Warn("reco_pool_load_failed", "pool", spec.name, "error", err)
		case ok:
			var pool CachedPool
			if err := json.Unmarshal(raw, &pool); err != nil {
				logger.Warn("reco_pool_decode_failed", "pool", spec.name, "error", err)
			} else if pool.Valid(now, spec.windowDays, spec.size) {
				RecoPoolCacheTotal.WithLabelValues(spec.name, "hit").Inc()
				return pool.Entries
			}
		}
	}

	RecoPoolCacheTotal.WithLabelValues(spec.name, "miss").Inc()

	entries, err := compute(ctx)
	if err != nil {
		RecoPoolCacheTotal.WithLabelValues(spec.name, "error").Inc()
		logger.Error("reco_pool_compute_failed", "pool", spec.name, "error", err)
		return []PoolEntry{}
	}
	if len(entries) > spec.size {
		entries = entries[:spec.size]
	}

	if c.store != nil {
		raw, err := json.Marshal(CachedPool{
			Entries:    entries,
			ComputedAt: now,
			TTL:        spec.ttl,
			WindowDays: spec.windowDays,
			Size:       spec.size,
		})
		if err == nil {
			err = c.store.Save(ctx, key, raw, spec.ttl)
		}
		if err != nil {
			logger.Warn("reco_pool_save_failed", "pool", spec.name, "error", err)
		}
	}

	return entries
}

func (s *Service) popularSpec() poolSpec {
	return poolSpec{name: "popular", windowDays: s.cfg.PopularLookbackDays, size: s.cfg.PopularPoolSize, ttl: s.cfg.PopularTTL}
}

func (s *Service) freshSpec() poolSpec {
	return poolSpec{name: "fresh", windowDays: s.cfg.FreshWindowDays, size: s.cfg.FreshPoolSize, ttl: s.cfg.FreshTTL}
}

// popularPool ranks available listings by behavior signals within the lookback window.
func (s *Service) popularPool(ctx context.Context) []PoolEntry {
	spec := s.popularSpec()
	return s.pools.GetOrCompute(ctx, spec, func(ctx context.Context) ([]PoolEntry, error) {
		since := s.now().AddDate(0, 0, -spec.windowDays)
		entries, err := s.behavior.PopularSince(ctx, since, spec.size)
		if err != nil {
			return nil, fmt.Errorf("failed to load popular listings: %w", err)
		}

		var top float64
		for _, e := range entries {
			if e.Strength > top {
				top = e.Strength
			}
		}
		for i := range entries {
			if top > 0 {
				entries[i].Strength = entries[i].Strength / top
			}
		}
		return entries, nil
	})
}

// freshPool lists the newest available listings created within the freshness window.
func (s *Service) freshPool(ctx context.Context) []PoolEntry {
	spec := s.freshSpec()
	return s.pools.GetOrCompute(ctx, spec, func(ctx context.Context) ([]PoolEntry, error) {
		now := s.now()
		listings, err := s.listings.FreshSince(ctx, now.AddDate(0, 0, -spec.windowDays), spec.size)
		if err != nil {
			return nil, fmt.Errorf("failed to load fresh listings: %w", err)
		}

		entries := make([]PoolEntry, 0, len(listings))
		for _, l := range listings {
			if !l.IsAvailable() {
				continue
			}
			entries = append(entries, PoolEntry{
				ListingID: l.ID,
				SellerID:  l.SellerID,
				CreatedAt: l.CreatedAt,
				Strength:  s.cfg.RecencyBoost(ageInDays(now, l.CreatedAt)),
			})
		}
		return entries, nil
	})
}
