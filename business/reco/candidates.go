package reco

import (
	"context"
	"errors"
	"fmt"

	"campusBooks/domain"
	"campusBooks/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// candidateFetchFactor over-fetches content matches so capping by affinity has room to choose.
const candidateFetchFactor = 2

// userContext is everything read about the requesting user before ranking.
type userContext struct {
	views      []domain.BehaviorSignal
	clicks     []domain.BehaviorSignal
	wishlists  []domain.BehaviorSignal
	purchased  []uint64
	userViews  int64
	totalViews int64
	degraded   bool
}

func (uc userContext) signals() []domain.BehaviorSignal {
	out := make([]domain.BehaviorSignal, 0, len(uc.views)+len(uc.clicks)+len(uc.wishlists))
	out = append(out, uc.views...)
	out = append(out, uc.clicks...)
	out = append(out, uc.wishlists...)
	return out
}

func (uc userContext) historyIDs() []uint64 {
	sigs := uc.signals()
	ids := make([]uint64, 0, len(sigs))
	for _, s := range sigs {
		ids = append(ids, s.ListingID)
	}
	return ids
}

// loadUserContext reads history, purchases and view counts concurrently.
// Anonymous users only need the global view count.
func (s *Service) loadUserContext(ctx context.Context, userID uint) (userContext, error) {
	var uc userContext
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.behavior.CountTotalViews(gctx)
		if err != nil {
			return fmt.Errorf("failed to count total views: %w", err)
		}
		uc.totalViews = n
		return nil
	})

	if userID != AnonymousUser {
		recent := func(kind domain.SignalKind, limit int, dst *[]domain.BehaviorSignal) {
			g.Go(func() error {
				if limit <= 0 {
					return nil
				}
				sigs, err := s.behavior.RecentSignals(gctx, userID, kind, limit)
				if err != nil {
					return fmt.Errorf("failed to load recent %s signals: %w", kind, err)
				}
				*dst = sigs
				return nil
			})
		}
		recent(domain.SignalView, s.cfg.MaxViewsToFetch, &uc.views)
		recent(domain.SignalClick, s.cfg.MaxClicksToFetch, &uc.clicks)
		recent(domain.SignalWishlist, s.cfg.MaxWishlistsToFetch, &uc.wishlists)

		g.Go(func() error {
			n, err := s.behavior.CountUserViews(gctx, userID)
			if err != nil {
				return fmt.Errorf("failed to count user views: %w", err)
			}
			uc.userViews = n
			return nil
		})

		if s.purchases != nil {
			g.Go(func() error {
				ids, err := s.purchases.PurchasedListingIDs(gctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load purchased listings: %w", err)
				}
				uc.purchased = ids
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return userContext{}, err
	}
	return uc, nil
}

type candidatePools struct {
	content       []Candidate
	collaborative []Candidate
	degraded      bool
}

// generateCandidates builds the content and collaborative pools. A listing
// found by both stays in the content pool. Collaborative failures degrade to
// an empty collaborative pool.
func (s *Service) generateCandidates(ctx context.Context, userID uint, uc userContext, elig eligibility) candidatePools {
	var out candidatePools

	signals := uc.signals()
	if userID == AnonymousUser || len(signals) == 0 {
		return out
	}

	now := s.now()
	affinity := s.cfg.affinities(now, signals)

	anchorIDs := make([]uint64, 0, len(affinity))
	for id := range affinity {
		anchorIDs = append(anchorIDs, id)
	}

	anchorListings, err := s.listings.FindByIDs(ctx, anchorIDs)
	if err != nil {
		logger.Error("reco_anchor_load_failed", "trace_id", TraceIDFromContext(ctx), "user_id", userID, "error", err)
		out.degraded = true
		return out
	}
	anchors := newAnchors(anchorListings, affinity)
	keys := matchKeys(anchors)

	var (
		matched []domain.Listing
		coOccur []CoOccurrence
		collErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if keys.Empty() {
			return nil
		}
		ls, err := s.listings.FindMatching(gctx, keys, userID, s.cfg.PersonalizedCandidateLimit*candidateFetchFactor)
		if err != nil {
			return fmt.Errorf("failed to load content candidates: %w", err)
		}
		matched = ls
		return nil
	})
	// the collaborative read runs beside the group so its failure never cancels content
	collDone := make(chan struct{})
	go func() {
		defer close(collDone)
		coOccur, collErr = s.collaborative(ctx, userID, anchorIDs)
	}()

	if err := g.Wait(); err != nil {
		logger.Error("reco_content_candidates_failed", "trace_id", TraceIDFromContext(ctx), "user_id", userID, "error", err)
		out.degraded = true
	}
	<-collDone

	if collErr != nil {
		out.degraded = true
	}

	coCounts := make(map[uint64]int64, len(coOccur))
	for _, co := range coOccur {
		coCounts[co.ListingID] = co.Count
	}

	content := make([]Candidate, 0, len(matched))
	inContent := make(map[uint64]struct{}, len(matched))
	for _, l := range matched {
		if !l.IsAvailable() || !elig.allows(l.ID, l.SellerID) {
			continue
		}
		if _, dup := inContent[l.ID]; dup {
			continue
		}
		f, aff := extractFeatures(now, l, anchors)
		if !f.AnyMatch() {
			continue
		}
		inContent[l.ID] = struct{}{}
		content = append(content, Candidate{
			ListingID:    l.ID,
			SellerID:     l.SellerID,
			CreatedAt:    l.CreatedAt,
			Features:     f,
			Provenance:   domain.ProvenanceContent,
			Affinity:     aff,
			CoOccurrence: coCounts[l.ID],
		})
	}
	out.content = capCandidates(content, s.cfg.PersonalizedCandidateLimit)

	kept := make(map[uint64]struct{}, len(out.content))
	for _, c := range out.content {
		kept[c.ListingID] = struct{}{}
	}

	collabIDs := make([]uint64, 0, len(coOccur))
	for _, co := range coOccur {
		if _, ok := kept[co.ListingID]; ok {
			continue
		}
		collabIDs = append(collabIDs, co.ListingID)
	}
	if len(collabIDs) == 0 {
		return out
	}

	collabListings, err := s.listings.FindByIDs(ctx, collabIDs)
	if err != nil {
		logger.Error("reco_collaborative_listings_failed", "trace_id", TraceIDFromContext(ctx), "user_id", userID, "error", err)
		out.degraded = true
		return out
	}

	collab := make([]Candidate, 0, len(collabListings))
	for _, l := range collabListings {
		if !l.IsAvailable() || !elig.allows(l.ID, l.SellerID) {
			continue
		}
		if _, ok := kept[l.ID]; ok {
			continue
		}
		kept[l.ID] = struct{}{}
		f, aff := extractFeatures(now, l, anchors)
		collab = append(collab, Candidate{
			ListingID:    l.ID,
			SellerID:     l.SellerID,
			CreatedAt:    l.CreatedAt,
			Features:     f,
			Provenance:   domain.ProvenanceCollaborative,
			Affinity:     aff,
			CoOccurrence: coCounts[l.ID],
		})
	}
	out.collaborative = collab

	return out
}

// collaborative reads co-occurring listings under a timeout and the circuit
// breaker. A source that ignores cancellation is abandoned at the deadline.
func (s *Service) collaborative(ctx context.Context, userID uint, anchorIDs []uint64) ([]CoOccurrence, error) {
	cctx := ctx
	if s.cfg.CollaborativeTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.cfg.CollaborativeTimeout)
		defer cancel()
	}

	type coResult struct {
		rows []CoOccurrence
		err  error
	}
	done := make(chan coResult, 1)
	go func() {
		res, err := s.breaker.Execute(func() (interface{}, error) {
			return s.behavior.CoOccurring(cctx, userID, anchorIDs, s.cfg.CollaborativeCandidateLimit)
		})
		rows, _ := res.([]CoOccurrence)
		done <- coResult{rows: rows, err: err}
	}()

	var out coResult
	select {
	case out = <-done:
	case <-cctx.Done():
		out = coResult{err: cctx.Err()}
	}

	if out.err != nil {
		reason := "error"
		switch {
		case errors.Is(out.err, gobreaker.ErrOpenState), errors.Is(out.err, gobreaker.ErrTooManyRequests):
			reason = "breaker_open"
		case errors.Is(out.err, context.DeadlineExceeded):
			reason = "timeout"
		}
		RecoCollaborativeDegradedTotal.WithLabelValues(reason).Inc()
		logger.Warn("reco_collaborative_degraded",
			"trace_id", TraceIDFromContext(ctx),
			"user_id", userID,
			"reason", reason,
			"error", out.err,
		)
		return nil, out.err
	}

	return out.rows, nil
}
