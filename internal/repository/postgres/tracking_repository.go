package postgres

import (
	"context"
	"fmt"

	"campusBooks/business/tracking"
	"campusBooks/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackingRepository stores recommendation impressions and clicks.
type TrackingRepository struct {
	DB *gorm.DB
}

var (
	_ tracking.ImpressionRepository = (*TrackingRepository)(nil)
	_ tracking.ClickRepository      = (*TrackingRepository)(nil)
)

func NewTrackingRepository(db *gorm.DB) *TrackingRepository {
	return &TrackingRepository{DB: db}
}

// SaveImpression inserts the impression unless one already exists for the
// same session, type and day. inserted is false for a duplicate.
func (r *TrackingRepository) SaveImpression(ctx context.Context, imp domain.RecommendationImpression) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{
				{Name: "session_id"},
				{Name: "type"},
				{Name: "impression_day"},
			},
			DoNothing: true,
		},
	).Create(&imp)
	if res.Error != nil {
		return false, fmt.Errorf("failed to save impression: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

func (r *TrackingRepository) SaveClick(ctx context.Context, click domain.RecommendationClick) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&click).Error; err != nil {
		return fmt.Errorf("failed to save click: %w", err)
	}

	return nil
}
