package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusBooks/business/reco"
	"campusBooks/business/tracking"

	"github.com/redis/go-redis/v9"
)

// PoolRepository keeps encoded recommendation pools in Redis so every
// instance shares one popular and one fresh pool.
type PoolRepository struct {
	client redis.Cmdable
}

var _ reco.PoolStore = (*PoolRepository)(nil)

func NewPoolRepository(client redis.Cmdable) *PoolRepository {
	return &PoolRepository{
		client: client,
	}
}

func (r *PoolRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get pool from Redis: %w", err)
	}

	return val, true, nil
}

func (r *PoolRepository) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pool in Redis: %w", err)
	}

	return nil
}

// ImpressionDeduper claims impression keys with SETNX.
type ImpressionDeduper struct {
	client redis.Cmdable
}

var _ tracking.Deduper = (*ImpressionDeduper)(nil)

func NewImpressionDeduper(client redis.Cmdable) *ImpressionDeduper {
	return &ImpressionDeduper{
		client: client,
	}
}

// FirstSeen reports true when this call created the key.
func (d *ImpressionDeduper) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim impression key: %w", err)
	}

	return ok, nil
}
