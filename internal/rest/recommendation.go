package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"campusBooks/business/reco"
	"campusBooks/business/tracking"
	"campusBooks/domain"
	"campusBooks/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const HeaderSessionID = "X-Session-ID"

type (
	RecommendationHandler struct {
		validate *validator.Validate
		service  RecommendationService
		tracker  ImpressionRecorder
	}

	RecommendationService interface {
		GetRecommendations(ctx context.Context, userID uint, pageType string, slotSize int) (reco.Result, error)
		GetSimilar(ctx context.Context, listingID uint64, userID uint, limit int) ([]domain.RecommendedItem, error)
		Debug(ctx context.Context, userID uint, slotSize int) (reco.DebugReport, error)
	}

	ImpressionRecorder interface {
		RecordImpression(ctx context.Context, in tracking.ImpressionInput) error
	}

	ForYouQuery struct {
		Limit    int    `query:"limit" validate:"min=0,max=100"`
		PageType string `query:"page_type" validate:"omitempty,oneof=home listing search profile cart"`
	}

	SimilarQuery struct {
		Limit int `query:"limit" validate:"min=0,max=100"`
	}

	DebugQuery struct {
		UserID uint `query:"user_id"`
		Limit  int  `query:"limit" validate:"min=0,max=100"`
	}

	RecommendationResponse struct {
		Type     domain.RecommendationType `json:"type"`
		Items    []domain.RecommendedItem  `json:"items"`
		Strategy string                    `json:"strategy,omitempty"`
		Degraded bool                      `json:"degraded"`
	}
)

// NewRecommendationHandler wires the ranking endpoints. tracker may be nil,
// in which case X-Session-ID is ignored.
func NewRecommendationHandler(svc RecommendationService, tracker ImpressionRecorder) *RecommendationHandler {
	return &RecommendationHandler{
		validate: validator.New(),
		service:  svc,
		tracker:  tracker,
	}
}

// optionalUserID returns reco.AnonymousUser when no user was authenticated.
func optionalUserID(c echo.Context) uint {
	if id, ok := c.Get("user_id").(uint); ok {
		return id
	}
	return reco.AnonymousUser
}

// GET /api/v1/recommendations/for-you?limit=10&page_type=home
func (h *RecommendationHandler) ForYou(c echo.Context) error {
	var q ForYouQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	userID := optionalUserID(c)
	ctx := c.Request().Context()

	res, err := h.service.GetRecommendations(ctx, userID, q.PageType, q.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	h.recordServed(c, userID, domain.TypeForYou, len(res.Items), q.PageType, nil)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(RecommendationResponse{
		Type:     domain.TypeForYou,
		Items:    res.Items,
		Strategy: res.Weights.Strategy,
		Degraded: res.Degraded,
	}))
}

// GET /api/v1/recommendations/similar/:id?limit=6
func (h *RecommendationHandler) Similar(c echo.Context) error {
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid listing id"})
	}

	var q SimilarQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	userID := optionalUserID(c)
	ctx := c.Request().Context()

	items, err := h.service.GetSimilar(ctx, listingID, userID, q.Limit)
	if err != nil {
		if errors.Is(err, reco.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	h.recordServed(c, userID, domain.TypeSimilar, len(items), "listing", &listingID)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(RecommendationResponse{
		Type:  domain.TypeSimilar,
		Items: items,
	}))
}

// GET /api/v1/admin/recommendations/debug?user_id=42&limit=10
func (h *RecommendationHandler) Debug(c echo.Context) error {
	var q DebugQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	userID := q.UserID
	if userID == 0 {
		userID = optionalUserID(c)
	}

	report, err := h.service.Debug(c.Request().Context(), userID, q.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

// recordServed records an impression for the rendered block when the client sent a session id.
func (h *RecommendationHandler) recordServed(c echo.Context, userID uint, typ domain.RecommendationType, count int, pageType string, source *uint64) {
	sessionID := c.Request().Header.Get(HeaderSessionID)
	if h.tracker == nil || sessionID == "" || count == 0 {
		return
	}

	in := tracking.ImpressionInput{
		SessionID:       sessionID,
		Type:            typ,
		Count:           count,
		PageType:        pageType,
		SourceListingID: source,
	}
	if userID != reco.AnonymousUser {
		in.UserID = &userID
	}

	if err := h.tracker.RecordImpression(c.Request().Context(), in); err != nil {
		logger.Warn("served_impression_not_recorded", "type", typ, "error", err)
	}
}
