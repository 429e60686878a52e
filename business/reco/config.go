package reco

import (
	"errors"
	"fmt"
	"time"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	// adaptive tiers
	MinUserViewsForCollaborative  int
	MinTotalViewsForCollaborative int64
	IntermediateUserViews         int
	IntermediateTotalViews        int64
	DefaultContentWeight          float64
	IntermediateContentWeight     float64
	BalancedContentWeight         float64

	// content similarity
	IsbnWeight       float64
	SubjectWeight    float64
	DepartmentWeight float64
	RecencyWeight    float64

	// exponential decay past the threshold, shared by listing age and signal age
	RecencyLambda        float64
	RecencyThresholdDays int

	// interaction weights per signal kind
	ClickWeight    float64
	WishlistWeight float64
	ViewWeight     float64

	MaxViewsToFetch             int
	MaxClicksToFetch            int
	MaxWishlistsToFetch         int
	PersonalizedCandidateLimit  int
	CollaborativeCandidateLimit int
	CollaborativeCountCap       int
	SimilarCandidateLimit       int
	CollaborativeTimeout        time.Duration

	SlotMixEnabled    bool
	SlotMixSize       int
	MaxSlotSize       int
	PersonalizedRatio float64
	PopularRatio      float64
	FreshRatio        float64
	ExploreEpsilon    float64
	ExploreSize       int

	PopularLookbackDays int
	FreshWindowDays     int
	PopularPoolSize     int
	FreshPoolSize       int
	PopularTTL          time.Duration
	FreshTTL            time.Duration

	DefaultSimilarLimit int
	MaxSimilarLimit     int

	// users with at least this many views count as having sufficient history
	MinUserViewsForReporting int

	Breaker BreakerConfig
}

type BreakerConfig struct {
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

const (
	defaultMinUserViewsForCollaborative  = 10
	defaultMinTotalViewsForCollaborative = 1000
	defaultIntermediateUserViews         = 30
	defaultIntermediateTotalViews        = 5000
	defaultDefaultContentWeight          = 0.90
	defaultIntermediateContentWeight     = 0.70
	defaultBalancedContentWeight         = 0.50

	defaultIsbnWeight       = 0.50
	defaultSubjectWeight    = 0.25
	defaultDepartmentWeight = 0.15
	defaultRecencyWeight    = 0.10

	defaultRecencyLambda        = 0.1
	defaultRecencyThresholdDays = 7

	defaultClickWeight    = 1.0
	defaultWishlistWeight = 0.7
	defaultViewWeight     = 0.3

	defaultMaxViewsToFetch             = 30
	defaultMaxClicksToFetch            = 20
	defaultMaxWishlistsToFetch         = 15
	defaultPersonalizedCandidateLimit  = 500
	defaultCollaborativeCandidateLimit = 50
	defaultCollaborativeCountCap       = 20
	defaultSimilarCandidateLimit       = 200
	defaultCollaborativeTimeout        = 300 * time.Millisecond

	defaultSlotMixSize       = 10
	defaultMaxSlotSize       = 50
	defaultPersonalizedRatio = 1.0
	defaultExploreSize       = 2

	defaultPopularLookbackDays = 7
	defaultFreshWindowDays     = 2
	defaultPoolSize            = 50
	defaultPoolTTL             = 60 * time.Second

	defaultSimilarLimit    = 6
	defaultMaxSimilarLimit = 50

	defaultBreakerFailureRatio = 0.5
	defaultBreakerMinRequests  = 5
	defaultBreakerOpenTimeout  = 30 * time.Second
)

func DefaultConfig() Config {
	return Config{
		MinUserViewsForCollaborative:  defaultMinUserViewsForCollaborative,
		MinTotalViewsForCollaborative: defaultMinTotalViewsForCollaborative,
		IntermediateUserViews:         defaultIntermediateUserViews,
		IntermediateTotalViews:        defaultIntermediateTotalViews,
		DefaultContentWeight:          defaultDefaultContentWeight,
		IntermediateContentWeight:     defaultIntermediateContentWeight,
		BalancedContentWeight:         defaultBalancedContentWeight,

		IsbnWeight:       defaultIsbnWeight,
		SubjectWeight:    defaultSubjectWeight,
		DepartmentWeight: defaultDepartmentWeight,
		RecencyWeight:    defaultRecencyWeight,

		RecencyLambda:        defaultRecencyLambda,
		RecencyThresholdDays: defaultRecencyThresholdDays,

		ClickWeight:    defaultClickWeight,
		WishlistWeight: defaultWishlistWeight,
		ViewWeight:     defaultViewWeight,

		MaxViewsToFetch:             defaultMaxViewsToFetch,
		MaxClicksToFetch:            defaultMaxClicksToFetch,
		MaxWishlistsToFetch:         defaultMaxWishlistsToFetch,
		PersonalizedCandidateLimit:  defaultPersonalizedCandidateLimit,
		CollaborativeCandidateLimit: defaultCollaborativeCandidateLimit,
		CollaborativeCountCap:       defaultCollaborativeCountCap,
		SimilarCandidateLimit:       defaultSimilarCandidateLimit,
		CollaborativeTimeout:        defaultCollaborativeTimeout,

		SlotMixEnabled:    true,
		SlotMixSize:       defaultSlotMixSize,
		MaxSlotSize:       defaultMaxSlotSize,
		PersonalizedRatio: defaultPersonalizedRatio,
		ExploreSize:       defaultExploreSize,

		PopularLookbackDays: defaultPopularLookbackDays,
		FreshWindowDays:     defaultFreshWindowDays,
		PopularPoolSize:     defaultPoolSize,
		FreshPoolSize:       defaultPoolSize,
		PopularTTL:          defaultPoolTTL,
		FreshTTL:            defaultPoolTTL,

		DefaultSimilarLimit: defaultSimilarLimit,
		MaxSimilarLimit:     defaultMaxSimilarLimit,

		MinUserViewsForReporting: defaultMinUserViewsForCollaborative,

		Breaker: BreakerConfig{
			FailureRatio: defaultBreakerFailureRatio,
			MinRequests:  defaultBreakerMinRequests,
			OpenTimeout:  defaultBreakerOpenTimeout,
		},
	}
}

var ErrInvalidConfig = errors.New("invalid recommender config")

// Validate rejects configurations the ranking code cannot honour.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"default content weight":      c.DefaultContentWeight,
		"intermediate content weight": c.IntermediateContentWeight,
		"balanced content weight":     c.BalancedContentWeight,
		"explore epsilon":             c.ExploreEpsilon,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, w)
		}
	}

	for name, w := range map[string]float64{
		"isbn weight":        c.IsbnWeight,
		"subject weight":     c.SubjectWeight,
		"department weight":  c.DepartmentWeight,
		"recency weight":     c.RecencyWeight,
		"recency lambda":     c.RecencyLambda,
		"personalized ratio": c.PersonalizedRatio,
		"popular ratio":      c.PopularRatio,
		"fresh ratio":        c.FreshRatio,
	} {
		if w < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, name, w)
		}
	}

	if c.IntermediateUserViews < c.MinUserViewsForCollaborative ||
		c.IntermediateTotalViews < c.MinTotalViewsForCollaborative {
		return fmt.Errorf("%w: intermediate thresholds must not be below the collaborative minimums", ErrInvalidConfig)
	}

	if c.SlotMixSize <= 0 || c.MaxSlotSize < c.SlotMixSize {
		return fmt.Errorf("%w: slot size %d must be positive and at most %d", ErrInvalidConfig, c.SlotMixSize, c.MaxSlotSize)
	}

	if c.PopularPoolSize <= 0 || c.FreshPoolSize <= 0 || c.PopularTTL <= 0 || c.FreshTTL <= 0 {
		return fmt.Errorf("%w: pool sizes and ttls must be positive", ErrInvalidConfig)
	}

	if c.PersonalizedCandidateLimit <= 0 || c.CollaborativeCandidateLimit <= 0 || c.SimilarCandidateLimit <= 0 {
		return fmt.Errorf("%w: candidate limits must be positive", ErrInvalidConfig)
	}

	if c.RecencyThresholdDays < 0 || c.ExploreSize < 0 {
		return fmt.Errorf("%w: recency threshold and explore size must not be negative", ErrInvalidConfig)
	}

	return nil
}
