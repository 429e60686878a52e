package reco

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusBooks/domain"
	"campusBooks/pkg/logger"

	"github.com/sony/gobreaker"
)

// AnonymousUser is the user id of requests without a signed-in user.
const AnonymousUser uint = 0

var ErrListingNotFound = errors.New("listing not found")

// ---- Repository interfaces ----

// BehaviorReader reads user behavior history and global aggregates.
type BehaviorReader interface {
	RecentSignals(ctx context.Context, userID uint, kind domain.SignalKind, limit int) ([]domain.BehaviorSignal, error)
	CountUserViews(ctx context.Context, userID uint) (int64, error)
	CountTotalViews(ctx context.Context) (int64, error)
	CountUsersWithViews(ctx context.Context, minViews int) (int64, error)
	CoOccurring(ctx context.Context, userID uint, anchorIDs []uint64, limit int) ([]CoOccurrence, error)
	PopularSince(ctx context.Context, since time.Time, limit int) ([]PoolEntry, error)
}

// ListingReader reads listing attributes. FindMatching and FreshSince only return available listings.
type ListingReader interface {
	FindByID(ctx context.Context, id uint64) (domain.Listing, bool, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Listing, error)
	FindMatching(ctx context.Context, keys MatchKeys, excludeSellerID uint, limit int) ([]domain.Listing, error)
	FreshSince(ctx context.Context, since time.Time, limit int) ([]domain.Listing, error)
}

// PurchaseReader lists listings a user already bought.
type PurchaseReader interface {
	PurchasedListingIDs(ctx context.Context, userID uint) ([]uint64, error)
}

// ---- Service ----

type Service struct {
	behavior  BehaviorReader
	listings  ListingReader
	purchases PurchaseReader
	pools     *PoolCache
	breaker   *gobreaker.CircuitBreaker
	cfg       Config
	rnd       Rand
	now       func() time.Time
}

type Option func(*Service)

// WithRand replaces the exploration random source.
func WithRand(r Rand) Option {
	return func(s *Service) { s.rnd = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	behavior BehaviorReader,
	listings ListingReader,
	purchases PurchaseReader,
	store PoolStore,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		behavior:  behavior,
		listings:  listings,
		purchases: purchases,
		cfg:       cfg,
		rnd:       globalRand{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pools = NewPoolCache(store, s.now)
	s.breaker = newCollaborativeBreaker(cfg.Breaker)

	return s, nil
}

func (s *Service) Config() Config {
	return s.cfg
}

// ranking holds every intermediate of one request, shared by GetRecommendations and Debug.
type ranking struct {
	userViews    int64
	totalViews   int64
	weights      BlendWeights
	content      []Candidate
	collab       []Candidate
	scored       []ScoredCandidate
	plan         SlotPlan
	items        []domain.RecommendedItem
	degraded     bool
	popularCount int
	freshCount   int
}

// GetRecommendations ranks listings for a user (AnonymousUser allowed).
// slotSize <= 0 uses the configured slot size; larger than MaxSlotSize is clamped.
func (s *Service) GetRecommendations(ctx context.Context, userID uint, pageType string, slotSize int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context error: %w", err)
	}

	r, err := s.rank(ctx, userID, slotSize)
	if err != nil {
		return Result{}, err
	}

	tid := TraceIDFromContext(ctx)
	logger.Debug("reco_get_recommendations",
		"trace_id", tid,
		"user_id", userID,
		"page_type", pageType,
		"strategy", r.weights.Strategy,
		"user_views", r.userViews,
		"total_views", r.totalViews,
		"content_candidates", len(r.content),
		"collaborative_candidates", len(r.collab),
		"served", len(r.items),
		"degraded", r.degraded,
	)

	RecoStrategyTotal.WithLabelValues(r.weights.Strategy).Inc()
	for _, it := range r.items {
		RecoItemsServedTotal.WithLabelValues(string(it.SourceLabel), pageLabel(pageType)).Inc()
	}

	return Result{
		Items:    r.items,
		Weights:  r.weights,
		Plan:     r.plan,
		Degraded: r.degraded,
	}, nil
}

func (s *Service) rank(ctx context.Context, userID uint, slotSize int) (ranking, error) {
	size := s.slotSize(slotSize)

	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ranking{}, fmt.Errorf("context error: %w", ctxErr)
		}
		logger.Error("reco_user_context_failed", "trace_id", TraceIDFromContext(ctx), "user_id", userID, "error", err)
		uc = userContext{degraded: true}
	}

	r := ranking{
		userViews:  uc.userViews,
		totalViews: uc.totalViews,
		weights:    s.cfg.SelectWeights(uc.userViews, uc.totalViews),
		degraded:   uc.degraded,
	}

	elig := newEligibility(userID, uc.historyIDs(), uc.purchased)

	pools := s.generateCandidates(ctx, userID, uc, elig)
	r.content = pools.content
	r.collab = pools.collaborative
	r.degraded = r.degraded || pools.degraded

	all := make([]Candidate, 0, len(pools.content)+len(pools.collaborative))
	all = append(all, pools.content...)
	all = append(all, pools.collaborative...)
	r.scored = s.cfg.scoreCandidates(all, r.weights)

	personalized := personalizedItems(r.scored)

	if !s.cfg.SlotMixEnabled {
		r.plan = SlotPlan{Personalized: size}
		if len(personalized) > size {
			personalized = personalized[:size]
		}
		r.items = personalized
		return r, nil
	}

	r.plan = s.cfg.PlanSlots(size)

	var popular, fresh []domain.RecommendedItem
	if r.plan.Personalized < size || len(personalized) < size {
		popular = poolItems(s.popularPool(ctx), domain.SlotPopular, elig)
		fresh = poolItems(s.freshPool(ctx), domain.SlotFresh, elig)
	}
	r.popularCount = len(popular)
	r.freshCount = len(fresh)

	r.items = mixSlots(r.plan, personalized, popular, fresh, s.cfg.ExploreEpsilon, s.rnd)
	return r, nil
}

func (s *Service) slotSize(requested int) int {
	if requested <= 0 {
		return s.cfg.SlotMixSize
	}
	return min(requested, s.cfg.MaxSlotSize)
}

func pageLabel(pageType string) string {
	if pageType == "" {
		return "unknown"
	}
	return pageType
}

func newCollaborativeBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = defaultBreakerFailureRatio
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = defaultBreakerMinRequests
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reco_collaborative",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
