package postgres

import (
	"context"
	"fmt"
	"time"

	"campusBooks/business/reco"
	"campusBooks/domain"

	"gorm.io/gorm"
)

// BehaviorRepository implements reco.BehaviorReader over the behavior_signals table.
type BehaviorRepository struct {
	DB *gorm.DB
}

var _ reco.BehaviorReader = (*BehaviorRepository)(nil)

func NewBehaviorRepository(db *gorm.DB) *BehaviorRepository {
	return &BehaviorRepository{DB: db}
}

func (r *BehaviorRepository) RecentSignals(ctx context.Context, userID uint, kind domain.SignalKind, limit int) ([]domain.BehaviorSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var signals []domain.BehaviorSignal
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent %s signals: %w", kind, err)
	}

	return signals, nil
}

func (r *BehaviorRepository) CountUserViews(ctx context.Context, userID uint) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.BehaviorSignal{}).
		Where("user_id = ? AND kind = ?", userID, domain.SignalView).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count user views: %w", err)
	}

	return n, nil
}

func (r *BehaviorRepository) CountTotalViews(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.BehaviorSignal{}).
		Where("kind = ?", domain.SignalView).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count total views: %w", err)
	}

	return n, nil
}

// CountUsersWithViews counts signed-in users with at least minViews views.
func (r *BehaviorRepository) CountUsersWithViews(ctx context.Context, minViews int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	sub := r.DB.WithContext(ctx).
		Model(&domain.BehaviorSignal{}).
		Select("user_id").
		Where("kind = ? AND user_id IS NOT NULL", domain.SignalView).
		Group("user_id").
		Having("COUNT(*) >= ?", minViews)

	var n int64
	if err := r.DB.WithContext(ctx).Table("(?) AS u", sub).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users with views: %w", err)
	}

	return n, nil
}

type coOccurrenceRow struct {
	ListingID uint64 `gorm:"column:listing_id"`
	Users     int64  `gorm:"column:users"`
}

// CoOccurring ranks available listings of other sellers touched by other users
// who also touched an anchor listing, by distinct co-occurring users.
func (r *BehaviorRepository) CoOccurring(ctx context.Context, userID uint, anchorIDs []uint64, limit int) ([]reco.CoOccurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(anchorIDs) == 0 || limit <= 0 {
		return []reco.CoOccurrence{}, nil
	}

	var rows []coOccurrenceRow
	err := r.DB.WithContext(ctx).
		Table("behavior_signals AS a").
		Select("b.listing_id AS listing_id, COUNT(DISTINCT b.user_id) AS users").
		Joins("JOIN behavior_signals AS b ON b.user_id = a.user_id AND b.listing_id <> a.listing_id").
		Joins("JOIN listings AS l ON l.id = b.listing_id").
		Where("a.listing_id IN ?", anchorIDs).
		Where("a.user_id IS NOT NULL AND a.user_id <> ?", userID).
		Where("b.listing_id NOT IN ?", anchorIDs).
		Where("l.status = ? AND l.seller_id <> ?", domain.ListingAvailable, userID).
		Group("b.listing_id").
		Order("users DESC").
		Order("b.listing_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query co-occurring listings: %w", err)
	}

	out := make([]reco.CoOccurrence, 0, len(rows))
	for _, row := range rows {
		out = append(out, reco.CoOccurrence{ListingID: row.ListingID, Count: row.Users})
	}

	return out, nil
}

type popularRow struct {
	ListingID uint64    `gorm:"column:listing_id"`
	SellerID  uint      `gorm:"column:seller_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	Signals   int64     `gorm:"column:signals"`
}

// PopularSince ranks available listings by behavior signals since the given time.
// Strength is the raw signal count.
func (r *BehaviorRepository) PopularSince(ctx context.Context, since time.Time, limit int) ([]reco.PoolEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []popularRow
	err := r.DB.WithContext(ctx).
		Table("behavior_signals AS s").
		Select("l.id AS listing_id, l.seller_id AS seller_id, l.created_at AS created_at, COUNT(*) AS signals").
		Joins("JOIN listings AS l ON l.id = s.listing_id").
		Where("s.created_at >= ?", since).
		Where("l.status = ?", domain.ListingAvailable).
		Group("l.id, l.seller_id, l.created_at").
		Order("signals DESC").
		Order("l.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular listings: %w", err)
	}

	out := make([]reco.PoolEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, reco.PoolEntry{
			ListingID: row.ListingID,
			SellerID:  row.SellerID,
			CreatedAt: row.CreatedAt,
			Strength:  float64(row.Signals),
		})
	}

	return out, nil
}
