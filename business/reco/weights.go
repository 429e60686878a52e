package reco

const (
	StrategyContentHeavy = "content-heavy"
	StrategyContentMix   = "content-collaborative-mix"
	StrategyBalanced     = "balanced-hybrid"
)

// SelectWeights picks the content/collaborative blend from the user's and the
// system's lifetime view counts. Tiers are checked in order, first match wins.
func (c Config) SelectWeights(userViews, totalViews int64) BlendWeights {
	if userViews < 0 {
		userViews = 0
	}
	if totalViews < 0 {
		totalViews = 0
	}

	switch {
	case userViews < int64(c.MinUserViewsForCollaborative) || totalViews < c.MinTotalViewsForCollaborative:
		return blend(c.DefaultContentWeight, StrategyContentHeavy)
	case userViews < int64(c.IntermediateUserViews) || totalViews < c.IntermediateTotalViews:
		return blend(c.IntermediateContentWeight, StrategyContentMix)
	default:
		return blend(c.BalancedContentWeight, StrategyBalanced)
	}
}

func blend(contentWeight float64, strategy string) BlendWeights {
	return BlendWeights{
		ContentWeight:       contentWeight,
		CollaborativeWeight: 1 - contentWeight,
		Strategy:            strategy,
	}
}
