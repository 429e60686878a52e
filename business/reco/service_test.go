//go:build !integration

package reco

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"campusBooks/domain"
)

// ---- fakes ----

type fakeBehavior struct {
	signals      map[domain.SignalKind][]domain.BehaviorSignal
	userViews    int64
	totalViews   int64
	withHistory  int64
	coOccur      []CoOccurrence
	coErr        error
	coBlock      chan struct{}
	popular      []PoolEntry
	popularCalls int
	totalErr     error
}

func (f *fakeBehavior) RecentSignals(_ context.Context, _ uint, kind domain.SignalKind, limit int) ([]domain.BehaviorSignal, error) {
	sigs := f.signals[kind]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

func (f *fakeBehavior) CountUserViews(context.Context, uint) (int64, error) {
	return f.userViews, nil
}

func (f *fakeBehavior) CountTotalViews(context.Context) (int64, error) {
	return f.totalViews, f.totalErr
}

func (f *fakeBehavior) CountUsersWithViews(context.Context, int) (int64, error) {
	return f.withHistory, nil
}

// CoOccurring ignores ctx when coBlock is set, like a driver stuck on the network.
func (f *fakeBehavior) CoOccurring(_ context.Context, _ uint, _ []uint64, _ int) ([]CoOccurrence, error) {
	if f.coBlock != nil {
		<-f.coBlock
	}
	return f.coOccur, f.coErr
}

func (f *fakeBehavior) PopularSince(_ context.Context, _ time.Time, limit int) ([]PoolEntry, error) {
	f.popularCalls++
	out := make([]PoolEntry, 0, len(f.popular))
	out = append(out, f.popular...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeListings struct {
	byID       map[uint64]domain.Listing
	freshCalls int
}

func newFakeListings(ls ...domain.Listing) *fakeListings {
	f := &fakeListings{byID: make(map[uint64]domain.Listing, len(ls))}
	for _, l := range ls {
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeListings) sorted() []domain.Listing {
	out := make([]domain.Listing, 0, len(f.byID))
	for _, l := range f.byID {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeListings) FindByID(_ context.Context, id uint64) (domain.Listing, bool, error) {
	l, ok := f.byID[id]
	return l, ok, nil
}

func (f *fakeListings) FindByIDs(_ context.Context, ids []uint64) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := f.byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeListings) FindMatching(_ context.Context, keys MatchKeys, excludeSellerID uint, limit int) ([]domain.Listing, error) {
	has := func(list []string, v string) bool {
		for _, x := range list {
			if v != "" && x == v {
				return true
			}
		}
		return false
	}

	out := make([]domain.Listing, 0)
	for _, l := range f.sorted() {
		if !l.IsAvailable() || l.SellerID == excludeSellerID {
			continue
		}
		if has(keys.ISBNs, normalizeISBN(l.ISBN)) || has(keys.Subjects, normalizeText(l.Subject)) || has(keys.Departments, normalizeText(l.Department)) {
			out = append(out, l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeListings) FreshSince(_ context.Context, since time.Time, limit int) ([]domain.Listing, error) {
	f.freshCalls++
	out := make([]domain.Listing, 0)
	for _, l := range f.sorted() {
		if l.IsAvailable() && !l.CreatedAt.Before(since) {
			out = append(out, l)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePurchases struct {
	ids []uint64
}

func (f *fakePurchases) PurchasedListingIDs(context.Context, uint) ([]uint64, error) {
	return f.ids, nil
}

// ---- fixtures ----

const testUser uint = 7

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func textbook(id uint64, seller uint, isbn, subject, dept string) domain.Listing {
	return domain.Listing{
		ID:         id,
		SellerID:   seller,
		ISBN:       isbn,
		Subject:    subject,
		Department: dept,
		Status:     domain.ListingAvailable,
		CreatedAt:  testNow,
	}
}

// catalog: 100 is the viewed anchor; 101 shares its ISBN, 103 its department,
// 102 is the user's own listing, 104 is sold, 105 was already bought and 106
// only co-occurs.
func testCatalog() *fakeListings {
	sold := textbook(104, 8, "978-0-13-468599-1", "Calculus", "Math")
	sold.Status = domain.ListingSold

	return newFakeListings(
		textbook(100, 9, "978-0-13-468599-1", "Calculus", "Math"),
		textbook(101, 8, "9780134685991", "Calculus Workbook", "Engineering"),
		textbook(102, testUser, "", "Calculus", "Math"),
		textbook(103, 8, "", "Physics", "Math"),
		sold,
		textbook(105, 8, "", "Calculus", "Science"),
		textbook(106, 8, "", "History", "Humanities"),
	)
}

func viewedAnchor() map[domain.SignalKind][]domain.BehaviorSignal {
	uid := testUser
	return map[domain.SignalKind][]domain.BehaviorSignal{
		domain.SignalView: {{ListingID: 100, UserID: &uid, Kind: domain.SignalView, CreatedAt: testNow.Add(-time.Hour)}},
	}
}

func newTestService(t *testing.T, behavior *fakeBehavior, listings *fakeListings, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(behavior, listings, &fakePurchases{ids: []uint64{105}}, newMemPoolStore(), cfg,
		WithClock(func() time.Time { return testNow }),
		WithRand(fixedRand{f: 0.99}),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// ---- tests ----

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BalancedContentWeight = 2

	_, err := NewService(&fakeBehavior{}, newFakeListings(), nil, nil, cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetRecommendations_Anonymous(t *testing.T) {
	behavior := &fakeBehavior{
		totalViews: 500,
		popular: []PoolEntry{
			{ListingID: 101, SellerID: 8, Strength: 10},
			{ListingID: 103, SellerID: 8, Strength: 5},
		},
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), AnonymousUser, "home", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Weights.Strategy != StrategyContentHeavy {
		t.Fatalf("expected content-heavy strategy, got %s", res.Weights.Strategy)
	}
	if len(res.Items) != 4 {
		t.Fatalf("expected 4 items, got %v", ids(res.Items))
	}
	if res.Items[0].ListingID != 101 || res.Items[0].SourceLabel != domain.SlotPopular || res.Items[0].Score != 1 {
		t.Fatalf("expected normalized popular listing first, got %+v", res.Items[0])
	}
	if res.Items[1].ListingID != 103 || res.Items[1].Score != 0.5 {
		t.Fatalf("unexpected second item: %+v", res.Items[1])
	}
	for _, it := range res.Items[2:] {
		if it.SourceLabel != domain.SlotFresh {
			t.Fatalf("expected fresh fill, got %+v", it)
		}
	}
}

func TestGetRecommendations_Personalized(t *testing.T) {
	behavior := &fakeBehavior{
		signals:    viewedAnchor(),
		userViews:  3,
		totalViews: 500,
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), testUser, "home", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sameIDs(res.Items, 101, 103) {
		t.Fatalf("expected [101 103], got %v", ids(res.Items))
	}
	for _, it := range res.Items {
		if it.SourceLabel != domain.SlotPersonalized {
			t.Fatalf("expected personalized label, got %+v", it)
		}
	}
	if res.Items[0].Score <= res.Items[1].Score {
		t.Fatalf("expected isbn match to outrank department match: %+v", res.Items)
	}
	if res.Degraded {
		t.Fatal("unexpected degraded result")
	}
}

func TestGetRecommendations_ExcludesHistoryBoughtAndOwn(t *testing.T) {
	behavior := &fakeBehavior{
		signals:    viewedAnchor(),
		userViews:  3,
		totalViews: 500,
		popular: []PoolEntry{
			{ListingID: 100, SellerID: 9, Strength: 9},
			{ListingID: 102, SellerID: testUser, Strength: 8},
			{ListingID: 105, SellerID: 8, Strength: 7},
			{ListingID: 106, SellerID: 8, Strength: 6},
		},
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), testUser, "home", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[uint64]bool)
	for _, it := range res.Items {
		switch it.ListingID {
		case 100, 102, 104, 105:
			t.Fatalf("ineligible listing %d served: %v", it.ListingID, ids(res.Items))
		}
		if seen[it.ListingID] {
			t.Fatalf("duplicate listing %d", it.ListingID)
		}
		seen[it.ListingID] = true
	}
	if !seen[106] {
		t.Fatalf("expected popular fallback 106, got %v", ids(res.Items))
	}
}

func TestGetRecommendations_CollaborativeBlend(t *testing.T) {
	behavior := &fakeBehavior{
		signals:    viewedAnchor(),
		userViews:  35,
		totalViews: 6000,
		coOccur:    []CoOccurrence{{ListingID: 106, Count: 4}, {ListingID: 102, Count: 9}},
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), testUser, "home", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Weights.Strategy != StrategyBalanced {
		t.Fatalf("expected balanced strategy, got %s", res.Weights.Strategy)
	}
	if !sameIDs(res.Items, 106, 101, 103) {
		t.Fatalf("expected [106 101 103], got %v", ids(res.Items))
	}
}

func TestGetRecommendations_CollaborativeDegrades(t *testing.T) {
	tests := []struct {
		name     string
		behavior func() *fakeBehavior
	}{
		{"error", func() *fakeBehavior {
			return &fakeBehavior{signals: viewedAnchor(), userViews: 35, totalViews: 6000, coErr: errors.New("timeout")}
		}},
		{"stuck source", func() *fakeBehavior {
			return &fakeBehavior{signals: viewedAnchor(), userViews: 35, totalViews: 6000, coBlock: make(chan struct{})}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			behavior := tt.behavior()
			if behavior.coBlock != nil {
				defer close(behavior.coBlock)
			}
			svc := newTestService(t, behavior, testCatalog(), func(c *Config) {
				c.CollaborativeTimeout = 20 * time.Millisecond
			})

			start := time.Now()
			res, err := svc.GetRecommendations(context.Background(), testUser, "home", 2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if time.Since(start) > 2*time.Second {
				t.Fatal("collaborative timeout was not honoured")
			}
			if !res.Degraded {
				t.Fatal("expected degraded result")
			}
			if !sameIDs(res.Items, 101, 103) {
				t.Fatalf("expected content results, got %v", ids(res.Items))
			}
		})
	}
}

func TestGetRecommendations_SlotMixDisabled(t *testing.T) {
	behavior := &fakeBehavior{
		signals:    viewedAnchor(),
		userViews:  3,
		totalViews: 500,
		popular:    []PoolEntry{{ListingID: 106, SellerID: 8, Strength: 1}},
	}
	catalog := testCatalog()
	svc := newTestService(t, behavior, catalog, func(c *Config) {
		c.SlotMixEnabled = false
		c.PopularRatio, c.FreshRatio, c.ExploreEpsilon = 0.3, 0.2, 0.2
	})

	tests := []struct {
		name string
		size int
		want []uint64
	}{
		{"shorter than slot size", 5, []uint64{101, 103}},
		{"truncated to slot size", 1, []uint64{101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.GetRecommendations(context.Background(), testUser, "home", tt.size)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sameIDs(res.Items, tt.want...) {
				t.Fatalf("expected %v, got %v", tt.want, ids(res.Items))
			}
			for _, it := range res.Items {
				if it.SourceLabel != domain.SlotPersonalized {
					t.Fatalf("expected personalized label, got %+v", it)
				}
			}
			if res.Plan != (SlotPlan{Personalized: tt.size}) {
				t.Fatalf("expected all-personalized plan, got %+v", res.Plan)
			}
		})
	}

	if behavior.popularCalls != 0 || catalog.freshCalls != 0 {
		t.Fatalf("pools must not load with slot mixing off: popular=%d fresh=%d", behavior.popularCalls, catalog.freshCalls)
	}
}

func TestGetRecommendations_MixedRatios(t *testing.T) {
	behavior := &fakeBehavior{
		signals:    viewedAnchor(),
		userViews:  3,
		totalViews: 500,
		popular: []PoolEntry{
			{ListingID: 100, SellerID: 9, Strength: 9},
			{ListingID: 106, SellerID: 8, Strength: 6},
		},
	}
	catalog := testCatalog()
	catalog.byID[107] = textbook(107, 8, "", "Art", "Arts")

	svc := newTestService(t, behavior, catalog, func(c *Config) {
		c.PersonalizedRatio, c.PopularRatio, c.FreshRatio = 0.5, 0.3, 0.2
		c.ExploreEpsilon = 0.2
	})

	res, err := svc.GetRecommendations(context.Background(), testUser, "home", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Plan != (SlotPlan{Personalized: 3, Popular: 1, Fresh: 1, Explore: 1}) {
		t.Fatalf("unexpected plan: %+v", res.Plan)
	}
	if !sameIDs(res.Items, 101, 103, 106, 107) {
		t.Fatalf("expected [101 103 106 107], got %v", ids(res.Items))
	}

	wantLabels := []domain.SlotLabel{domain.SlotPersonalized, domain.SlotPersonalized, domain.SlotPopular, domain.SlotFresh}
	seen := make(map[uint64]struct{}, len(res.Items))
	for i, it := range res.Items {
		if it.SourceLabel != wantLabels[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantLabels[i], it.SourceLabel)
		}
		if _, dup := seen[it.ListingID]; dup {
			t.Fatalf("duplicate listing %d", it.ListingID)
		}
		seen[it.ListingID] = struct{}{}
	}

	if behavior.popularCalls != 1 || catalog.freshCalls != 1 {
		t.Fatalf("expected each pool computed once: popular=%d fresh=%d", behavior.popularCalls, catalog.freshCalls)
	}
}

func TestGetRecommendations_UserContextFailureServesPools(t *testing.T) {
	behavior := &fakeBehavior{
		signals:  viewedAnchor(),
		totalErr: errors.New("connection refused"),
		popular:  []PoolEntry{{ListingID: 106, SellerID: 8, Strength: 1}},
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), testUser, "home", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Degraded || !sameIDs(res.Items, 106) {
		t.Fatalf("expected degraded popular result, got %+v", res)
	}
}

func TestGetRecommendations_SlotSize(t *testing.T) {
	svc := newTestService(t, &fakeBehavior{}, testCatalog(), nil)

	res, err := svc.GetRecommendations(context.Background(), AnonymousUser, "", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Plan.Total() != svc.Config().MaxSlotSize {
		t.Fatalf("expected plan clamped to %d, got %+v", svc.Config().MaxSlotSize, res.Plan)
	}

	res, err = svc.GetRecommendations(context.Background(), AnonymousUser, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Plan.Total() != svc.Config().SlotMixSize {
		t.Fatalf("expected default slot size, got %+v", res.Plan)
	}
}

func TestGetRecommendations_CanceledContext(t *testing.T) {
	svc := newTestService(t, &fakeBehavior{}, testCatalog(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GetRecommendations(ctx, testUser, "home", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetSimilar(t *testing.T) {
	svc := newTestService(t, &fakeBehavior{}, testCatalog(), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		listingID uint64
		userID    uint
		limit     int
		want      []uint64
		wantErr   error
	}{
		{"unknown listing", 999, AnonymousUser, 5, nil, ErrListingNotFound},
		{"ranked by content", 100, AnonymousUser, 0, []uint64{101, 102, 105, 103}, nil},
		{"limit applied", 100, AnonymousUser, 1, []uint64{101}, nil},
		{"own listings hidden", 100, testUser, 10, []uint64{101, 105, 103}, nil},
		{"no shared attributes", 106, AnonymousUser, 5, []uint64{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetSimilar(ctx, tt.listingID, tt.userID, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sameIDs(got, tt.want...) {
				t.Fatalf("expected %v, got %v", tt.want, ids(got))
			}
		})
	}
}

func TestDebug(t *testing.T) {
	behavior := &fakeBehavior{
		signals:     viewedAnchor(),
		userViews:   35,
		totalViews:  6000,
		withHistory: 12,
		coOccur:     []CoOccurrence{{ListingID: 106, Count: 4}},
	}
	svc := newTestService(t, behavior, testCatalog(), nil)

	rep, err := svc.Debug(context.Background(), testUser, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.UsersWithHistory != 12 || rep.ContentCandidates != 2 || rep.CollaborativeCandidates != 1 {
		t.Fatalf("unexpected debug report: %+v", rep)
	}
	if len(rep.Scored) != 3 || rep.Scored[0].Provenance != domain.ProvenanceCollaborative {
		t.Fatalf("unexpected scored list: %+v", rep.Scored)
	}
}
