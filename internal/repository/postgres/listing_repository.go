package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusBooks/business/reco"
	"campusBooks/domain"

	"gorm.io/gorm"
)

// normalized column expressions; they mirror the recommender's key normalization
const (
	isbnKeyExpr       = "UPPER(REGEXP_REPLACE(COALESCE(isbn, ''), '[^0-9Xx]', '', 'g'))"
	subjectKeyExpr    = "LOWER(TRIM(COALESCE(subject, '')))"
	departmentKeyExpr = "LOWER(TRIM(COALESCE(department, '')))"
)

type ListingRepository struct {
	DB *gorm.DB
}

var _ reco.ListingReader = (*ListingRepository)(nil)

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{
		DB: db,
	}
}

func (r *ListingRepository) FindByID(ctx context.Context, id uint64) (domain.Listing, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Listing{}, false, fmt.Errorf("context error: %w", err)
	}

	var listing domain.Listing
	err := r.DB.WithContext(ctx).First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, fmt.Errorf("failed to find listing: %w", err)
	}

	return listing, true, nil
}

// FindByIDs returns the listings that exist among ids, in any status.
func (r *ListingRepository) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Listing{}, nil
	}

	var listings []domain.Listing
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}

	return listings, nil
}

// FindMatching returns available listings of other sellers sharing any key, newest first.
func (r *ListingRepository) FindMatching(ctx context.Context, keys reco.MatchKeys, excludeSellerID uint, limit int) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if keys.Empty() || limit <= 0 {
		return []domain.Listing{}, nil
	}

	match := r.DB.WithContext(ctx)
	var cond *gorm.DB
	or := func(expr string, values []string) {
		if len(values) == 0 {
			return
		}
		clause := expr + " IN ?"
		if cond == nil {
			cond = match.Where(clause, values)
			return
		}
		cond = cond.Or(clause, values)
	}
	or(isbnKeyExpr, keys.ISBNs)
	or(subjectKeyExpr, keys.Subjects)
	or(departmentKeyExpr, keys.Departments)

	q := r.DB.WithContext(ctx).
		Where("status = ?", domain.ListingAvailable).
		Where(cond)
	if excludeSellerID != 0 {
		q = q.Where("seller_id <> ?", excludeSellerID)
	}

	var listings []domain.Listing
	err := q.Order("created_at DESC").Order("id ASC").Limit(limit).Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find matching listings: %w", err)
	}

	return listings, nil
}

// FreshSince returns available listings created at or after since, newest first.
func (r *ListingRepository) FreshSince(ctx context.Context, since time.Time, limit int) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var listings []domain.Listing
	err := r.DB.WithContext(ctx).
		Where("status = ?", domain.ListingAvailable).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find fresh listings: %w", err)
	}

	return listings, nil
}
