package ctr

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"campusBooks/domain"
)

const (
	defaultPositionLimit   = 10
	defaultTopClickedLimit = 20
	maxTopClickedLimit     = 100
)

// TypeCount is an aggregate per recommendation type.
type TypeCount struct {
	Type  domain.RecommendationType
	Total int64
}

// DayTypeCount is an aggregate per calendar day and recommendation type.
// Day is the calendar day in the reporting location, stored as midnight UTC.
type DayTypeCount struct {
	Day   time.Time
	Type  domain.RecommendationType
	Total int64
}

// Repository aggregates stored impressions and clicks over [start, end).
// Impression totals are sums of the stored count, not row counts.
type Repository interface {
	ImpressionsByType(ctx context.Context, start, end time.Time) ([]TypeCount, error)
	ClicksByType(ctx context.Context, start, end time.Time) ([]TypeCount, error)
	UniqueSessions(ctx context.Context, start, end time.Time) (int64, error)
	ClicksByLabel(ctx context.Context, start, end time.Time) ([]domain.LabelStats, error)
	ClicksByPosition(ctx context.Context, start, end time.Time, limit int) ([]domain.PositionStats, error)
	DailyImpressions(ctx context.Context, start, end time.Time) ([]DayTypeCount, error)
	DailyClicks(ctx context.Context, start, end time.Time) ([]DayTypeCount, error)
	TopClicked(ctx context.Context, start, end time.Time, limit int) ([]domain.ClickedListing, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetMetrics reports impressions, clicks and CTR over [start, end).
// An empty or inverted range yields zeroed statistics.
func (s *Service) GetMetrics(ctx context.Context, start, end time.Time) (domain.MetricsReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.MetricsReport{}, fmt.Errorf("context error: %w", err)
	}

	report := domain.MetricsReport{
		PeriodStart:   start,
		PeriodEnd:     end,
		PerType:       zeroTypeStats(),
		BySourceLabel: []domain.LabelStats{},
		ByPosition:    []domain.PositionStats{},
	}
	if !end.After(start) {
		return report, nil
	}

	imps, err := s.repo.ImpressionsByType(ctx, start, end)
	if err != nil {
		return domain.MetricsReport{}, fmt.Errorf("failed to aggregate impressions: %w", err)
	}
	clicks, err := s.repo.ClicksByType(ctx, start, end)
	if err != nil {
		return domain.MetricsReport{}, fmt.Errorf("failed to aggregate clicks: %w", err)
	}

	impByType := totalsByType(imps)
	clickByType := totalsByType(clicks)

	for i := range report.PerType {
		st := &report.PerType[i]
		st.Impressions = impByType[st.Type]
		st.Clicks = clickByType[st.Type]
		st.CTR = Rate(st.Clicks, st.Impressions)
		report.TotalImpressions += st.Impressions
		report.TotalClicks += st.Clicks
	}
	report.CTR = Rate(report.TotalClicks, report.TotalImpressions)
	report.CTRPercent = Percent(report.TotalClicks, report.TotalImpressions)

	if report.UniqueSessions, err = s.repo.UniqueSessions(ctx, start, end); err != nil {
		return domain.MetricsReport{}, fmt.Errorf("failed to count sessions: %w", err)
	}

	labels, err := s.repo.ClicksByLabel(ctx, start, end)
	if err != nil {
		return domain.MetricsReport{}, fmt.Errorf("failed to aggregate clicks by label: %w", err)
	}
	if labels != nil {
		report.BySourceLabel = labels
	}

	positions, err := s.repo.ClicksByPosition(ctx, start, end, defaultPositionLimit)
	if err != nil {
		return domain.MetricsReport{}, fmt.Errorf("failed to aggregate clicks by position: %w", err)
	}
	if positions != nil {
		report.ByPosition = positions
	}

	return report, nil
}

// GetDailyMetrics returns one row per calendar day in [start, end) that has
// impressions or clicks, ordered by day.
func (s *Service) GetDailyMetrics(ctx context.Context, start, end time.Time) ([]domain.DailyStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if !end.After(start) {
		return []domain.DailyStats{}, nil
	}

	imps, err := s.repo.DailyImpressions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily impressions: %w", err)
	}
	clicks, err := s.repo.DailyClicks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily clicks: %w", err)
	}

	days := make(map[string]*domain.DailyStats)
	row := func(d time.Time) *domain.DailyStats {
		key := d.Format("2006-01-02")
		st, ok := days[key]
		if !ok {
			st = &domain.DailyStats{Date: key}
			days[key] = st
		}
		return st
	}

	for _, c := range imps {
		st := row(c.Day)
		switch c.Type {
		case domain.TypeForYou:
			st.ForYouImpressions += c.Total
		case domain.TypeSimilar:
			st.SimilarImpressions += c.Total
		}
		st.TotalImpressions += c.Total
	}
	for _, c := range clicks {
		st := row(c.Day)
		switch c.Type {
		case domain.TypeForYou:
			st.ForYouClicks += c.Total
		case domain.TypeSimilar:
			st.SimilarClicks += c.Total
		}
		st.TotalClicks += c.Total
	}

	out := make([]domain.DailyStats, 0, len(days))
	for _, st := range days {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out, nil
}

// GetTopClicked lists the most clicked listings in [start, end).
func (s *Service) GetTopClicked(ctx context.Context, start, end time.Time, limit int) ([]domain.ClickedListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if !end.After(start) {
		return []domain.ClickedListing{}, nil
	}

	if limit <= 0 {
		limit = defaultTopClickedLimit
	}
	limit = min(limit, maxTopClickedLimit)

	rows, err := s.repo.TopClicked(ctx, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top clicked listings: %w", err)
	}
	if rows == nil {
		rows = []domain.ClickedListing{}
	}

	return rows, nil
}

// Rate is clicks/impressions, 0 when there are no impressions.
func Rate(clicks, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return float64(clicks) / float64(impressions)
}

// Percent is Rate as a percentage rounded to two decimals.
func Percent(clicks, impressions int64) float64 {
	return math.Round(Rate(clicks, impressions)*10000) / 100
}

func zeroTypeStats() []domain.TypeStats {
	out := make([]domain.TypeStats, 0, len(domain.RecommendationTypes))
	for _, t := range domain.RecommendationTypes {
		out = append(out, domain.TypeStats{Type: t})
	}
	return out
}

func totalsByType(rows []TypeCount) map[domain.RecommendationType]int64 {
	out := make(map[domain.RecommendationType]int64, len(rows))
	for _, r := range rows {
		out[r.Type] += r.Total
	}
	return out
}
