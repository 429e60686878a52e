//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return client
}

func TestPoolRepository_LoadSave(t *testing.T) {
	client := newTestClient(t)
	repo := NewPoolRepository(client)
	ctx := context.Background()
	key := fmt.Sprintf("reco:pool:test:%d", time.Now().UnixNano())

	if _, ok, err := repo.Load(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := repo.Save(ctx, key, []byte(`{"entries":[]}`), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.Load(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"entries":[]}` {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestImpressionDeduper_FirstSeen(t *testing.T) {
	client := newTestClient(t)
	d := NewImpressionDeduper(client)
	ctx := context.Background()
	key := fmt.Sprintf("reco:imp:test:%d", time.Now().UnixNano())

	first, err := d.FirstSeen(ctx, key, time.Minute)
	if err != nil || !first {
		t.Fatalf("expected first claim, got %v %v", first, err)
	}

	again, err := d.FirstSeen(ctx, key, time.Minute)
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v %v", again, err)
	}
}
