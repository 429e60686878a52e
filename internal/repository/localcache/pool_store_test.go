//go:build !integration

package localcache

import (
	"context"
	"testing"
	"time"
)

func TestPoolStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	store, err := NewPoolStore(ctx, time.Minute, 0)
	if err != nil {
		t.Fatalf("NewPoolStore: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Load(ctx, "reco:pool:popular"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, "reco:pool:popular", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load(ctx, "reco:pool:popular")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestPoolStore_CanceledContext(t *testing.T) {
	store, err := NewPoolStore(context.Background(), time.Minute, 0)
	if err != nil {
		t.Fatalf("NewPoolStore: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.Load(ctx, "k"); err == nil {
		t.Fatal("expected context error")
	}
}
