package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
)

var TrackerEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reco_tracker_events_total",
		Help: "Impressions and clicks handled by the tracker, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(TrackerEventsTotal)
}
