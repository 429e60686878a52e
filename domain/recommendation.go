package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrUnknownType  = errors.New("unknown recommendation type")
	ErrUnknownLabel = errors.New("unknown slot label")
)

type RecommendationType string

const (
	TypeForYou  RecommendationType = "FOR_YOU"
	TypeSimilar RecommendationType = "SIMILAR"
)

// RecommendationTypes lists every type in reporting order.
var RecommendationTypes = []RecommendationType{TypeForYou, TypeSimilar}

func ParseRecommendationType(s string) (RecommendationType, error) {
	switch t := RecommendationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeForYou, TypeSimilar:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

type SlotLabel string

const (
	SlotPersonalized SlotLabel = "personalized"
	SlotPopular      SlotLabel = "popular"
	SlotFresh        SlotLabel = "fresh"
	SlotExplore      SlotLabel = "explore"
)

// SlotLabels lists every label in fill order.
var SlotLabels = []SlotLabel{SlotPersonalized, SlotPopular, SlotFresh, SlotExplore}

func ParseSlotLabel(s string) (SlotLabel, error) {
	switch l := SlotLabel(strings.ToLower(strings.TrimSpace(s))); l {
	case SlotPersonalized, SlotPopular, SlotFresh, SlotExplore:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

type Provenance string

const (
	ProvenanceContent       Provenance = "CONTENT"
	ProvenanceCollaborative Provenance = "COLLABORATIVE"
)

// RecommendedItem is one entry of a ranked response.
type RecommendedItem struct {
	ListingID   uint64    `json:"listing_id"`
	SourceLabel SlotLabel `json:"source_label"`
	Score       float64   `json:"score"`
}

// RecommendationImpression is one rendered recommendation block.
// At most one row exists per (session_id, type, impression_day).
type RecommendationImpression struct {
	ID              uint64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       string             `gorm:"column:session_id;type:varchar(100);not null;uniqueIndex:uniq_impression_session_type_day,priority:1" json:"session_id"`
	UserID          *uint              `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Type            RecommendationType `gorm:"column:type;type:varchar(20);not null;uniqueIndex:uniq_impression_session_type_day,priority:2" json:"type"`
	Count           int                `gorm:"column:count;not null" json:"count"`
	PageType        string             `gorm:"column:page_type;type:varchar(50)" json:"page_type"`
	SourceListingID *uint64            `gorm:"column:source_listing_id" json:"source_listing_id,omitempty"`
	ImpressionDay   datatypes.Date     `gorm:"column:impression_day;not null;uniqueIndex:uniq_impression_session_type_day,priority:3" json:"impression_day"`
	ImpressedAt     time.Time          `gorm:"column:impressed_at;not null;index" json:"impressed_at"`
}

func (RecommendationImpression) TableName() string {
	return "recommendation_impressions"
}

// RecommendationClick is one click-through on a recommended listing.
type RecommendationClick struct {
	ID              uint64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          *uint              `gorm:"column:user_id;index" json:"user_id,omitempty"`
	ListingID       uint64             `gorm:"column:listing_id;not null;index" json:"listing_id"`
	Type            RecommendationType `gorm:"column:type;type:varchar(20);not null;index:idx_click_type_position,priority:1" json:"type"`
	Position        int                `gorm:"column:position;index:idx_click_type_position,priority:2" json:"position"`
	SourceListingID *uint64            `gorm:"column:source_listing_id" json:"source_listing_id,omitempty"`
	SourceLabel     SlotLabel          `gorm:"column:source_label;type:varchar(30)" json:"source_label"`
	ClickedAt       time.Time          `gorm:"column:clicked_at;not null;index" json:"clicked_at"`
}

func (RecommendationClick) TableName() string {
	return "recommendation_clicks"
}
