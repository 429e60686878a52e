package domain

import (
	"time"
)

// CREATE TABLE public.listings (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     seller_id   BIGINT NOT NULL,
//     title       TEXT,
//     isbn        TEXT,
//     subject     TEXT,
//     department  TEXT,
//     status      TEXT NOT NULL DEFAULT 'AVAILABLE',
//     created_at  TIMESTAMPTZ DEFAULT NOW()
// );

type ListingStatus string

const (
	ListingAvailable ListingStatus = "AVAILABLE"
	ListingReserved  ListingStatus = "RESERVED"
	ListingSold      ListingStatus = "SOLD"
	ListingHidden    ListingStatus = "HIDDEN"
)

// Listing is the read model of a second-hand textbook listing.
// Listings are owned by the marketplace; the recommender never writes them.
type Listing struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID   uint          `gorm:"column:seller_id;not null;index" json:"seller_id"`
	Title      string        `gorm:"column:title;type:text" json:"title"`
	ISBN       string        `gorm:"column:isbn;type:text;index" json:"isbn"`
	Subject    string        `gorm:"column:subject;type:text;index" json:"subject"`
	Department string        `gorm:"column:department;type:text;index" json:"department"`
	Status     ListingStatus `gorm:"column:status;type:text;not null;default:AVAILABLE" json:"status"`
	CreatedAt  time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (Listing) TableName() string {
	return "listings"
}

func (l Listing) IsAvailable() bool {
	return l.Status == ListingAvailable
}

// Transaction records a completed purchase of a listing.
type Transaction struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID uint64    `gorm:"column:listing_id;not null;index" json:"listing_id"`
	BuyerID   uint      `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	SellerID  uint      `gorm:"column:seller_id;not null" json:"seller_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
