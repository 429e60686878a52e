package reco

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecoItemsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_items_served_total",
			Help: "Count of recommended listings served by slot label and page type.",
		},
		[]string{"slot_label", "page_type"},
	)

	RecoStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_strategy_total",
			Help: "Count of ranking requests by adaptive weight strategy.",
		},
		[]string{"strategy"},
	)

	RecoCollaborativeDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_collaborative_degraded_total",
			Help: "Count of requests that ranked without collaborative candidates, by reason.",
		},
		[]string{"reason"},
	)

	RecoPoolCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_pool_cache_total",
			Help: "Popular/fresh pool cache lookups by pool and result.",
		},
		[]string{"pool", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RecoItemsServedTotal,
		RecoStrategyTotal,
		RecoCollaborativeDegradedTotal,
		RecoPoolCacheTotal,
	)
}
