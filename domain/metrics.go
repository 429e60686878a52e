package domain

import "time"

type TypeStats struct {
	Type        RecommendationType `json:"type"`
	Impressions int64              `json:"impressions"`
	Clicks      int64              `json:"clicks"`
	CTR         float64            `json:"ctr"`
}

type LabelStats struct {
	Label  SlotLabel `json:"label"`
	Clicks int64     `json:"clicks"`
}

type PositionStats struct {
	Position int   `json:"position"`
	Clicks   int64 `json:"clicks"`
}

type DailyStats struct {
	Date               string `json:"date"`
	ForYouClicks       int64  `json:"for_you_clicks"`
	SimilarClicks      int64  `json:"similar_clicks"`
	TotalClicks        int64  `json:"total_clicks"`
	ForYouImpressions  int64  `json:"for_you_impressions"`
	SimilarImpressions int64  `json:"similar_impressions"`
	TotalImpressions   int64  `json:"total_impressions"`
}

type ClickedListing struct {
	ListingID uint64 `json:"listing_id"`
	Clicks    int64  `json:"clicks"`
}

// MetricsReport summarises recommendation quality over [PeriodStart, PeriodEnd).
type MetricsReport struct {
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	TotalImpressions int64           `json:"total_impressions"`
	TotalClicks      int64           `json:"total_clicks"`
	CTR              float64         `json:"ctr"`
	CTRPercent       float64         `json:"ctr_percent"`
	UniqueSessions   int64           `json:"unique_sessions"`
	PerType          []TypeStats     `json:"per_type"`
	BySourceLabel    []LabelStats    `json:"by_source_label"`
	ByPosition       []PositionStats `json:"by_position"`
}
