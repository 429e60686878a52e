package main

import (
	"campusBooks/business/reco"
	"campusBooks/pkg/config"
)

func recoConfig(c config.RecoConfig) reco.Config {
	return reco.Config{
		MinUserViewsForCollaborative:  c.MinUserViewsForCollaborative,
		MinTotalViewsForCollaborative: c.MinTotalViewsForCollaborative,
		IntermediateUserViews:         c.IntermediateUserViews,
		IntermediateTotalViews:        c.IntermediateTotalViews,
		DefaultContentWeight:          c.DefaultContentWeight,
		IntermediateContentWeight:     c.IntermediateContentWeight,
		BalancedContentWeight:         c.BalancedContentWeight,

		IsbnWeight:       c.IsbnWeight,
		SubjectWeight:    c.SubjectWeight,
		DepartmentWeight: c.DepartmentWeight,
		RecencyWeight:    c.RecencyWeight,

		RecencyLambda:        c.RecencyLambda,
		RecencyThresholdDays: c.RecencyThresholdDays,

		ClickWeight:    c.ClickWeight,
		WishlistWeight: c.WishlistWeight,
		ViewWeight:     c.ViewWeight,

		MaxViewsToFetch:             c.MaxViewsToFetch,
		MaxClicksToFetch:            c.MaxClicksToFetch,
		MaxWishlistsToFetch:         c.MaxWishlistsToFetch,
		PersonalizedCandidateLimit:  c.PersonalizedCandidateLimit,
		CollaborativeCandidateLimit: c.CollaborativeCandidateLimit,
		CollaborativeCountCap:       c.CollaborativeCountCap,
		SimilarCandidateLimit:       c.SimilarCandidateLimit,
		CollaborativeTimeout:        c.CollaborativeTimeout,

		SlotMixEnabled:    c.SlotMixEnabled,
		SlotMixSize:       c.SlotMixSize,
		MaxSlotSize:       c.MaxSlotSize,
		PersonalizedRatio: c.PersonalizedRatio,
		PopularRatio:      c.PopularRatio,
		FreshRatio:        c.FreshRatio,
		ExploreEpsilon:    c.ExploreEpsilon,
		ExploreSize:       c.ExploreSize,

		PopularLookbackDays: c.PopularLookbackDays,
		FreshWindowDays:     c.FreshWindowDays,
		PopularPoolSize:     c.PopularPoolSize,
		FreshPoolSize:       c.FreshPoolSize,
		PopularTTL:          c.PopularTTL,
		FreshTTL:            c.FreshTTL,

		DefaultSimilarLimit: c.DefaultSimilarLimit,
		MaxSimilarLimit:     c.MaxSimilarLimit,

		MinUserViewsForReporting: c.MinUserViewsForReporting,

		Breaker: reco.BreakerConfig{
			FailureRatio: c.BreakerFailureRatio,
			MinRequests:  c.BreakerMinRequests,
			OpenTimeout:  c.BreakerOpenTimeout,
		},
	}
}
