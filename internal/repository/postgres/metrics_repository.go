package postgres

import (
	"context"
	"fmt"
	"time"

	"campusBooks/business/ctr"
	"campusBooks/domain"

	"gorm.io/gorm"
)

// MetricsRepository aggregates impressions and clicks for CTR reporting.
// Daily series are bucketed by calendar day in Location, the same location
// the tracker uses for impression_day.
type MetricsRepository struct {
	DB       *gorm.DB
	Location *time.Location
}

var _ ctr.Repository = (*MetricsRepository)(nil)

func NewMetricsRepository(db *gorm.DB, loc *time.Location) *MetricsRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsRepository{DB: db, Location: loc}
}

type typeCountRow struct {
	Type  domain.RecommendationType `gorm:"column:type"`
	Total int64                     `gorm:"column:total"`
}

type dayTypeCountRow struct {
	Day   time.Time                 `gorm:"column:day"`
	Type  domain.RecommendationType `gorm:"column:type"`
	Total int64                     `gorm:"column:total"`
}

func toTypeCounts(rows []typeCountRow) []ctr.TypeCount {
	out := make([]ctr.TypeCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ctr.TypeCount{Type: r.Type, Total: r.Total})
	}
	return out
}

func toDayTypeCounts(rows []dayTypeCountRow) []ctr.DayTypeCount {
	out := make([]ctr.DayTypeCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ctr.DayTypeCount{Day: r.Day, Type: r.Type, Total: r.Total})
	}
	return out
}

// zoneName is the IANA name handed to AT TIME ZONE.
func (r *MetricsRepository) zoneName() string {
	if r.Location == nil || r.Location == time.Local {
		return "UTC"
	}
	return r.Location.String()
}

func (r *MetricsRepository) impressions(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.DB.WithContext(ctx).
		Model(&domain.RecommendationImpression{}).
		Where("impressed_at >= ? AND impressed_at < ?", start, end)
}

func (r *MetricsRepository) clicks(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.DB.WithContext(ctx).
		Model(&domain.RecommendationClick{}).
		Where("clicked_at >= ? AND clicked_at < ?", start, end)
}

func (r *MetricsRepository) ImpressionsByType(ctx context.Context, start, end time.Time) ([]ctr.TypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []typeCountRow
	err := r.impressions(ctx, start, end).
		Select("type, COALESCE(SUM(count), 0) AS total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum impressions: %w", err)
	}

	return toTypeCounts(rows), nil
}

func (r *MetricsRepository) ClicksByType(ctx context.Context, start, end time.Time) ([]ctr.TypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []typeCountRow
	err := r.clicks(ctx, start, end).
		Select("type, COUNT(*) AS total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}

	return toTypeCounts(rows), nil
}

func (r *MetricsRepository) UniqueSessions(ctx context.Context, start, end time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var n int64
	if err := r.impressions(ctx, start, end).Distinct("session_id").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return n, nil
}

func (r *MetricsRepository) ClicksByLabel(ctx context.Context, start, end time.Time) ([]domain.LabelStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.LabelStats
	err := r.clicks(ctx, start, end).
		Select("source_label AS label, COUNT(*) AS clicks").
		Group("source_label").
		Order("clicks DESC").
		Order("label ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks by label: %w", err)
	}

	return rows, nil
}

func (r *MetricsRepository) ClicksByPosition(ctx context.Context, start, end time.Time, limit int) ([]domain.PositionStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.PositionStats
	err := r.clicks(ctx, start, end).
		Select("position, COUNT(*) AS clicks").
		Group("position").
		Order("clicks DESC").
		Order("position ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks by position: %w", err)
	}

	return rows, nil
}

func (r *MetricsRepository) DailyImpressions(ctx context.Context, start, end time.Time) ([]ctr.DayTypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []dayTypeCountRow
	if err := r.dailyImpressionsQuery(ctx, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum daily impressions: %w", err)
	}

	return toDayTypeCounts(rows), nil
}

func (r *MetricsRepository) DailyClicks(ctx context.Context, start, end time.Time) ([]ctr.DayTypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []dayTypeCountRow
	if err := r.dailyClicksQuery(ctx, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count daily clicks: %w", err)
	}

	return toDayTypeCounts(rows), nil
}

// impression_day is already the tracker's calendar day.
func (r *MetricsRepository) dailyImpressionsQuery(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.impressions(ctx, start, end).
		Select("impression_day AS day, type, COALESCE(SUM(count), 0) AS total").
		Group("impression_day, type").
		Order("day ASC")
}

func (r *MetricsRepository) dailyClicksQuery(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.clicks(ctx, start, end).
		Select("(clicked_at AT TIME ZONE ?)::date AS day, type, COUNT(*) AS total", r.zoneName()).
		Group("day, type").
		Order("day ASC")
}

func (r *MetricsRepository) TopClicked(ctx context.Context, start, end time.Time, limit int) ([]domain.ClickedListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.ClickedListing
	err := r.clicks(ctx, start, end).
		Select("listing_id, COUNT(*) AS clicks").
		Group("listing_id").
		Order("clicks DESC").
		Order("listing_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top clicked listings: %w", err)
	}

	return rows, nil
}
