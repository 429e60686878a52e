package rest

import (
	"context"
	"net/http"

	"campusBooks/business/reco"
	"campusBooks/business/tracking"
	"campusBooks/domain"
	"campusBooks/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	TrackingHandler struct {
		validate *validator.Validate
		tracker  Tracker
	}

	Tracker interface {
		RecordImpression(ctx context.Context, in tracking.ImpressionInput) error
		RecordClick(ctx context.Context, in tracking.ClickInput) error
	}

	TrackImpressionRequest struct {
		SessionID       string  `json:"session_id" validate:"required,max=100"`
		Type            string  `json:"type" validate:"required,oneof=FOR_YOU SIMILAR"`
		Count           int     `json:"count" validate:"required,min=1"`
		PageType        string  `json:"page_type" validate:"omitempty,max=50"`
		SourceListingID *uint64 `json:"source_listing_id"`
	}

	TrackClickRequest struct {
		ListingID       uint64  `json:"listing_id" validate:"required"`
		Type            string  `json:"type" validate:"required,oneof=FOR_YOU SIMILAR"`
		Position        int     `json:"position" validate:"min=0"`
		SourceListingID *uint64 `json:"source_listing_id"`
		SourceLabel     string  `json:"source_label" validate:"omitempty,oneof=personalized popular fresh explore"`
	}
)

func NewTrackingHandler(tracker Tracker) *TrackingHandler {
	return &TrackingHandler{
		validate: validator.New(),
		tracker:  tracker,
	}
}

// accepted is the reply of every tracking call; tracking never fails the caller.
func accepted(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK("accepted"))
}

// POST /api/v1/recommendations/track-impression
func (h *TrackingHandler) TrackImpression(c echo.Context) error {
	var req TrackImpressionRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("track_impression_bad_request", "error", err)
		return accepted(c)
	}
	if err := h.validate.Struct(&req); err != nil {
		logger.Warn("track_impression_invalid", "error", err)
		return accepted(c)
	}

	in := tracking.ImpressionInput{
		SessionID:       req.SessionID,
		Type:            domain.RecommendationType(req.Type),
		Count:           req.Count,
		PageType:        req.PageType,
		SourceListingID: req.SourceListingID,
	}
	if userID := optionalUserID(c); userID != reco.AnonymousUser {
		in.UserID = &userID
	}

	if err := h.tracker.RecordImpression(c.Request().Context(), in); err != nil {
		logger.Warn("track_impression_rejected", "trace_id", reco.TraceIDFromContext(c.Request().Context()), "error", err)
	}

	return accepted(c)
}

// POST /api/v1/recommendations/track-click
func (h *TrackingHandler) TrackClick(c echo.Context) error {
	var req TrackClickRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("track_click_bad_request", "error", err)
		return accepted(c)
	}
	if err := h.validate.Struct(&req); err != nil {
		logger.Warn("track_click_invalid", "error", err)
		return accepted(c)
	}

	in := tracking.ClickInput{
		ListingID:       req.ListingID,
		Type:            domain.RecommendationType(req.Type),
		Position:        req.Position,
		SourceListingID: req.SourceListingID,
		SourceLabel:     domain.SlotLabel(req.SourceLabel),
	}
	if userID := optionalUserID(c); userID != reco.AnonymousUser {
		in.UserID = &userID
	}

	if err := h.tracker.RecordClick(c.Request().Context(), in); err != nil {
		logger.Warn("track_click_rejected", "trace_id", reco.TraceIDFromContext(c.Request().Context()), "error", err)
	}

	return accepted(c)
}

// Throttled answers rate-limited tracking calls like accepted ones; the event is dropped.
func Throttled(c echo.Context, identifier string, err error) error {
	logger.Debug("track_throttled", "identifier", identifier, "path", c.Path(), "error", err)
	return accepted(c)
}
