package postgres

import (
	"context"
	"fmt"

	"campusBooks/business/reco"
	"campusBooks/domain"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	DB *gorm.DB
}

var _ reco.PurchaseReader = (*TransactionRepository)(nil)

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{
		DB: db,
	}
}

// PurchasedListingIDs lists the listings the user bought.
func (r *TransactionRepository) PurchasedListingIDs(ctx context.Context, userID uint) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).
		Model(&domain.Transaction{}).
		Distinct("listing_id").
		Where("buyer_id = ?", userID).
		Pluck("listing_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query purchased listings: %w", err)
	}

	return ids, nil
}
