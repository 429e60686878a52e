package reco

import (
	"context"
	"fmt"

	"campusBooks/domain"
	"campusBooks/pkg/logger"
)

// DebugReport exposes every intermediate of one ranking for inspection.
type DebugReport struct {
	UserID                  uint                     `json:"user_id"`
	UserViews               int64                    `json:"user_views"`
	TotalViews              int64                    `json:"total_views"`
	UsersWithHistory        int64                    `json:"users_with_history"`
	Weights                 BlendWeights             `json:"weights"`
	Plan                    SlotPlan                 `json:"plan"`
	ContentCandidates       int                      `json:"content_candidates"`
	CollaborativeCandidates int                      `json:"collaborative_candidates"`
	PopularPoolSize         int                      `json:"popular_pool_size"`
	FreshPoolSize           int                      `json:"fresh_pool_size"`
	Scored                  []ScoredCandidate        `json:"scored"`
	Items                   []domain.RecommendedItem `json:"items"`
	Degraded                bool                     `json:"degraded"`
}

// Debug runs the ranking pipeline and returns its intermediates. Scored is
// truncated to the MaxSlotSize best candidates.
func (s *Service) Debug(ctx context.Context, userID uint, slotSize int) (DebugReport, error) {
	if err := ctx.Err(); err != nil {
		return DebugReport{}, fmt.Errorf("context error: %w", err)
	}

	r, err := s.rank(ctx, userID, slotSize)
	if err != nil {
		return DebugReport{}, err
	}

	withHistory, err := s.behavior.CountUsersWithViews(ctx, s.cfg.MinUserViewsForReporting)
	if err != nil {
		logger.Warn("reco_debug_users_with_history_failed", "trace_id", TraceIDFromContext(ctx), "error", err)
	}

	scored := r.scored
	if len(scored) > s.cfg.MaxSlotSize {
		scored = scored[:s.cfg.MaxSlotSize]
	}

	logger.Debug("reco_debug",
		"trace_id", TraceIDFromContext(ctx),
		"user_id", userID,
		"strategy", r.weights.Strategy,
		"scored", len(r.scored),
	)

	return DebugReport{
		UserID:                  userID,
		UserViews:               r.userViews,
		TotalViews:              r.totalViews,
		UsersWithHistory:        withHistory,
		Weights:                 r.weights,
		Plan:                    r.plan,
		ContentCandidates:       len(r.content),
		CollaborativeCandidates: len(r.collab),
		PopularPoolSize:         r.popularCount,
		FreshPoolSize:           r.freshCount,
		Scored:                  scored,
		Items:                   r.items,
		Degraded:                r.degraded,
	}, nil
}
