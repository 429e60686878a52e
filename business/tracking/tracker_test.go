//go:build !integration

package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campusBooks/domain"
)

type memImpressions struct {
	mu    sync.Mutex
	rows  []domain.RecommendationImpression
	seen  map[string]struct{}
	block chan struct{}
	err   error
}

func newMemImpressions() *memImpressions {
	return &memImpressions{seen: make(map[string]struct{})}
}

func (m *memImpressions) SaveImpression(ctx context.Context, imp domain.RecommendationImpression) (bool, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	key := fmt.Sprintf("%s|%s|%s", imp.SessionID, imp.Type, time.Time(imp.ImpressionDay).Format(dayLayout))
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	m.rows = append(m.rows, imp)
	return true, nil
}

func (m *memImpressions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memClicks struct {
	mu   sync.Mutex
	rows []domain.RecommendationClick
}

func (m *memClicks) SaveClick(ctx context.Context, c domain.RecommendationClick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, c)
	return nil
}

func (m *memClicks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memDedup struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (m *memDedup) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func closeTracker(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRecordImpression_Validation(t *testing.T) {
	tr := NewTracker(newMemImpressions(), &memClicks{}, nil, DefaultConfig())
	defer closeTracker(t, tr)

	long := make([]byte, maxSessionIDLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		in   ImpressionInput
	}{
		{"empty session", ImpressionInput{SessionID: "  ", Type: domain.TypeForYou, Count: 3}},
		{"long session", ImpressionInput{SessionID: string(long), Type: domain.TypeForYou, Count: 3}},
		{"zero count", ImpressionInput{SessionID: "s1", Type: domain.TypeForYou, Count: 0}},
		{"unknown type", ImpressionInput{SessionID: "s1", Type: "TRENDING", Count: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.RecordImpression(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidImpression) {
				t.Fatalf("expected ErrInvalidImpression, got %v", err)
			}
		})
	}
}

func TestRecordClick_Validation(t *testing.T) {
	tr := NewTracker(newMemImpressions(), &memClicks{}, nil, DefaultConfig())
	defer closeTracker(t, tr)

	tests := []struct {
		name string
		in   ClickInput
	}{
		{"missing listing", ClickInput{Type: domain.TypeForYou}},
		{"negative position", ClickInput{ListingID: 1, Type: domain.TypeForYou, Position: -1}},
		{"unknown type", ClickInput{ListingID: 1, Type: "TRENDING"}},
		{"unknown label", ClickInput{ListingID: 1, Type: domain.TypeSimilar, SourceLabel: "boosted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.RecordClick(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidClick) {
				t.Fatalf("expected ErrInvalidClick, got %v", err)
			}
		})
	}
}

func TestImpressionDedupPerSessionTypeDay(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	imps := newMemImpressions()

	tr := NewTracker(imps, &memClicks{}, nil, DefaultConfig(), WithClock(fixedClock(day1)))
	ctx := context.Background()

	record := func(session string, typ domain.RecommendationType) {
		t.Helper()
		if err := tr.RecordImpression(ctx, ImpressionInput{SessionID: session, Type: typ, Count: 10}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	record("s1", domain.TypeForYou)
	record("s1", domain.TypeForYou)
	record("s1", domain.TypeSimilar)
	record("s2", domain.TypeForYou)

	tr.now = fixedClock(day1.Add(24 * time.Hour))
	record("s1", domain.TypeForYou)

	closeTracker(t, tr)

	if got := imps.count(); got != 4 {
		t.Fatalf("expected 4 stored impressions, got %d", got)
	}
}

func TestImpressionDedupFastPath(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	imps := newMemImpressions()
	dd := &memDedup{keys: make(map[string]time.Duration)}

	tr := NewTracker(imps, &memClicks{}, dd, DefaultConfig(), WithClock(fixedClock(now)))
	for i := 0; i < 3; i++ {
		in := ImpressionInput{SessionID: "s1", Type: domain.TypeForYou, Count: 8}
		if err := tr.RecordImpression(context.Background(), in); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	closeTracker(t, tr)

	if got := imps.count(); got != 1 {
		t.Fatalf("expected 1 stored impression, got %d", got)
	}

	key := dedupKey("s1", domain.TypeForYou, dayStart(now, time.UTC))
	ttl, ok := dd.keys[key]
	if !ok {
		t.Fatalf("dedup key %q not set", key)
	}
	if ttl != 6*time.Hour {
		t.Fatalf("expected ttl 6h, got %v", ttl)
	}
}

func TestImpressionDedupFallsBackToStoreOnDeduperError(t *testing.T) {
	imps := newMemImpressions()
	dd := &memDedup{keys: make(map[string]time.Duration), err: errors.New("redis down")}

	tr := NewTracker(imps, &memClicks{}, dd, DefaultConfig())
	for i := 0; i < 2; i++ {
		in := ImpressionInput{SessionID: "s1", Type: domain.TypeSimilar, Count: 6}
		if err := tr.RecordImpression(context.Background(), in); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	closeTracker(t, tr)

	if got := imps.count(); got != 1 {
		t.Fatalf("expected store dedup to keep 1 impression, got %d", got)
	}
}

func TestRecordNeverBlocksWhenQueueFull(t *testing.T) {
	imps := newMemImpressions()
	imps.block = make(chan struct{})

	tr := NewTracker(imps, &memClicks{}, nil, Config{QueueSize: 2, Workers: 1, WriteTimeout: time.Second})

	done := make(chan struct{})
	var dropped int
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			in := ImpressionInput{SessionID: fmt.Sprintf("s%d", i), Type: domain.TypeForYou, Count: 1}
			if err := tr.RecordImpression(context.Background(), in); errors.Is(err, ErrQueueFull) {
				dropped++
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordImpression blocked on a stalled store")
	}

	if dropped == 0 {
		t.Fatal("expected some impressions to be dropped")
	}

	close(imps.block)
	closeTracker(t, tr)
}

func TestStoreFailureIsNotReturned(t *testing.T) {
	imps := newMemImpressions()
	imps.err = errors.New("db down")
	clicks := &memClicks{}

	tr := NewTracker(imps, clicks, nil, DefaultConfig())
	if err := tr.RecordImpression(context.Background(), ImpressionInput{SessionID: "s1", Type: domain.TypeForYou, Count: 1}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := tr.RecordClick(context.Background(), ClickInput{ListingID: 7, Type: domain.TypeForYou, Position: 2}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	closeTracker(t, tr)

	if got := clicks.count(); got != 1 {
		t.Fatalf("expected 1 click, got %d", got)
	}
	if clicks.rows[0].SourceLabel != domain.SlotPersonalized {
		t.Fatalf("expected default label personalized, got %s", clicks.rows[0].SourceLabel)
	}
}

func TestRecordNormalizesTypeAndLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	imps := newMemImpressions()
	clicks := &memClicks{}
	dd := &memDedup{keys: make(map[string]time.Duration)}

	tr := NewTracker(imps, clicks, dd, DefaultConfig(), WithClock(fixedClock(now)))
	ctx := context.Background()

	for _, typ := range []domain.RecommendationType{"for_you", "FOR_YOU", " For_You "} {
		if err := tr.RecordImpression(ctx, ImpressionInput{SessionID: "s1", Type: typ, Count: 4}); err != nil {
			t.Fatalf("record %q: %v", typ, err)
		}
	}
	if err := tr.RecordClick(ctx, ClickInput{ListingID: 9, Type: "similar", Position: 1, SourceLabel: "POPULAR"}); err != nil {
		t.Fatalf("record click: %v", err)
	}
	closeTracker(t, tr)

	if got := imps.count(); got != 1 {
		t.Fatalf("expected 1 stored impression across spellings, got %d", got)
	}
	if imps.rows[0].Type != domain.TypeForYou {
		t.Fatalf("expected stored type %s, got %q", domain.TypeForYou, imps.rows[0].Type)
	}
	if _, ok := dd.keys[dedupKey("s1", domain.TypeForYou, dayStart(now, time.UTC))]; !ok {
		t.Fatalf("expected dedup key on the canonical type, got %v", dd.keys)
	}

	if got := clicks.count(); got != 1 {
		t.Fatalf("expected 1 click, got %d", got)
	}
	if c := clicks.rows[0]; c.Type != domain.TypeSimilar || c.SourceLabel != domain.SlotPopular {
		t.Fatalf("expected SIMILAR/popular, got %q/%q", c.Type, c.SourceLabel)
	}
}

func TestRecordAfterClose(t *testing.T) {
	tr := NewTracker(newMemImpressions(), &memClicks{}, nil, DefaultConfig())
	closeTracker(t, tr)

	err := tr.RecordClick(context.Background(), ClickInput{ListingID: 1, Type: domain.TypeForYou})
	if !errors.Is(err, ErrTrackerClosed) {
		t.Fatalf("expected ErrTrackerClosed, got %v", err)
	}
	// closing twice is fine
	closeTracker(t, tr)
}

func TestDayHelpers(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	ts := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC) // 03:00 next day in WIB

	if got := dayStart(ts, jakarta).Format(dayLayout); got != "2026-03-11" {
		t.Fatalf("expected 2026-03-11, got %s", got)
	}
	if got := ttlUntilNextDay(ts, jakarta); got != 21*time.Hour {
		t.Fatalf("expected 21h, got %v", got)
	}

	a := dedupKey("sess:1", domain.TypeForYou, ts)
	b := dedupKey("sess", domain.TypeForYou, ts)
	if a == b {
		t.Fatal("different sessions produced the same key")
	}
}
