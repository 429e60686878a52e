package reco

import (
	"fmt"
	"time"

	"campusBooks/domain"
)

// SignalWeight turns one behavior signal into an interaction weight, decayed by age.
func (c Config) SignalWeight(kind domain.SignalKind, age time.Duration) (float64, error) {
	var base float64

	switch kind {
	case domain.SignalClick:
		base = c.ClickWeight
	case domain.SignalWishlist:
		base = c.WishlistWeight
	case domain.SignalView:
		base = c.ViewWeight
	default:
		return 0, fmt.Errorf("unknown signal kind: %s", kind)
	}

	days := age.Hours() / 24
	if days < 0 {
		days = 0
	}

	return base * decay(days, c.RecencyLambda, c.RecencyThresholdDays), nil
}

// affinities keeps the strongest weight per listing across all history signals.
func (c Config) affinities(now time.Time, signals []domain.BehaviorSignal) map[uint64]float64 {
	out := make(map[uint64]float64, len(signals))
	for _, sig := range signals {
		w, err := c.SignalWeight(sig.Kind, now.Sub(sig.CreatedAt))
		if err != nil {
			continue
		}
		if w > out[sig.ListingID] {
			out[sig.ListingID] = w
		}
	}
	return out
}
