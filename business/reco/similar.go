package reco

import (
	"context"
	"fmt"

	"campusBooks/domain"
	"campusBooks/pkg/logger"
)

// GetSimilar ranks available listings from other sellers that share the ISBN,
// subject or department of the base listing. Only listings with at least one
// feature match are returned.
func (s *Service) GetSimilar(ctx context.Context, listingID uint64, userID uint, limit int) ([]domain.RecommendedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if limit <= 0 {
		limit = s.cfg.DefaultSimilarLimit
	}
	limit = min(limit, s.cfg.MaxSimilarLimit)

	base, ok, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load base listing: %w", err)
	}
	if !ok {
		return nil, ErrListingNotFound
	}

	anchors := newAnchors([]domain.Listing{base}, map[uint64]float64{base.ID: 1})
	keys := matchKeys(anchors)
	if keys.Empty() {
		return []domain.RecommendedItem{}, nil
	}

	matched, err := s.listings.FindMatching(ctx, keys, base.SellerID, s.cfg.SimilarCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load similar listings: %w", err)
	}

	elig := newEligibility(userID, []uint64{base.ID})
	now := s.now()

	scored := make([]ScoredCandidate, 0, len(matched))
	for _, l := range matched {
		if !l.IsAvailable() || l.SellerID == base.SellerID || !elig.allows(l.ID, l.SellerID) {
			continue
		}
		f, _ := extractFeatures(now, l, anchors)
		if !f.AnyMatch() {
			continue
		}
		scored = append(scored, ScoredCandidate{
			Candidate: Candidate{
				ListingID:  l.ID,
				SellerID:   l.SellerID,
				CreatedAt:  l.CreatedAt,
				Features:   f,
				Provenance: domain.ProvenanceContent,
			},
			Score: s.cfg.ContentScore(f),
		})
	}
	sortScored(scored)

	if len(scored) > limit {
		scored = scored[:limit]
	}

	items := make([]domain.RecommendedItem, 0, len(scored))
	for _, sc := range scored {
		items = append(items, domain.RecommendedItem{
			ListingID:   sc.ListingID,
			SourceLabel: domain.SlotPersonalized,
			Score:       sc.Score,
		})
	}

	logger.Debug("reco_get_similar",
		"trace_id", TraceIDFromContext(ctx),
		"listing_id", listingID,
		"user_id", userID,
		"matched", len(matched),
		"served", len(items),
	)

	return items, nil
}
