package reco

import (
	"time"

	"campusBooks/domain"
)

// Features are the binary similarity matches of a candidate against the user's history.
type Features struct {
	ISBNMatch       bool `json:"isbn_match"`
	SubjectMatch    bool `json:"subject_match"`
	DepartmentMatch bool `json:"department_match"`
	AgeInDays       int  `json:"age_in_days"`
}

func (f Features) AnyMatch() bool {
	return f.ISBNMatch || f.SubjectMatch || f.DepartmentMatch
}

// Candidate is a listing considered for one request. Never persisted.
type Candidate struct {
	ListingID    uint64            `json:"listing_id"`
	SellerID     uint              `json:"seller_id"`
	CreatedAt    time.Time         `json:"created_at"`
	Features     Features          `json:"features"`
	Provenance   domain.Provenance `json:"provenance"`
	Affinity     float64           `json:"affinity"`
	CoOccurrence int64             `json:"co_occurrence"`
}

type ScoredCandidate struct {
	Candidate
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"score_breakdown"`
}

// BlendWeights always sums to exactly 1.
type BlendWeights struct {
	ContentWeight       float64 `json:"content_weight"`
	CollaborativeWeight float64 `json:"collaborative_weight"`
	Strategy            string  `json:"strategy"`
}

type SlotPlan struct {
	Personalized int `json:"personalized"`
	Popular      int `json:"popular"`
	Fresh        int `json:"fresh"`
	Explore      int `json:"explore"`
}

func (p SlotPlan) Total() int {
	return p.Personalized + p.Popular + p.Fresh + p.Explore
}

// PoolEntry is one listing of a popular or fresh pool.
type PoolEntry struct {
	ListingID uint64    `json:"listing_id"`
	SellerID  uint      `json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
	Strength  float64   `json:"strength"`
}

// CoOccurrence counts distinct other users who touched both a history listing and ListingID.
type CoOccurrence struct {
	ListingID uint64
	Count     int64
}

// MatchKeys are the normalized attribute values of the user's history listings.
type MatchKeys struct {
	ISBNs       []string
	Subjects    []string
	Departments []string
}

func (k MatchKeys) Empty() bool {
	return len(k.ISBNs) == 0 && len(k.Subjects) == 0 && len(k.Departments) == 0
}

// Result is the outcome of one GetRecommendations call.
type Result struct {
	Items    []domain.RecommendedItem `json:"items"`
	Weights  BlendWeights             `json:"weights"`
	Plan     SlotPlan                 `json:"plan"`
	Degraded bool                     `json:"degraded"`
}
