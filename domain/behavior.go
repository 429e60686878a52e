package domain

import (
	"fmt"
	"strings"
	"time"
)

type SignalKind string

const (
	SignalView     SignalKind = "VIEW"
	SignalClick    SignalKind = "CLICK"
	SignalWishlist SignalKind = "WISHLIST"
)

func ParseSignalKind(s string) (SignalKind, error) {
	switch k := SignalKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case SignalView, SignalClick, SignalWishlist:
		return k, nil
	default:
		return "", fmt.Errorf("unknown signal kind: %q", s)
	}
}

// BehaviorSignal is one user action on a listing. Rows are append-only.
type BehaviorSignal struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint      `gorm:"column:user_id;index:idx_behavior_user_kind_time,priority:1" json:"user_id,omitempty"`
	ListingID uint64     `gorm:"column:listing_id;not null;index" json:"listing_id"`
	Kind      SignalKind `gorm:"column:kind;type:varchar(16);not null;index:idx_behavior_user_kind_time,priority:2" json:"kind"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;index:idx_behavior_user_kind_time,priority:3" json:"created_at"`
}

func (BehaviorSignal) TableName() string {
	return "behavior_signals"
}
