package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"campusBooks/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	dateLayout        = "2006-01-02"
	defaultMetricDays = 7
)

type (
	MetricsHandler struct {
		validate *validator.Validate
		service  MetricsService
		now      func() time.Time
	}

	MetricsService interface {
		GetMetrics(ctx context.Context, start, end time.Time) (domain.MetricsReport, error)
		GetDailyMetrics(ctx context.Context, start, end time.Time) ([]domain.DailyStats, error)
		GetTopClicked(ctx context.Context, start, end time.Time, limit int) ([]domain.ClickedListing, error)
	}

	// MetricsQuery takes inclusive calendar dates; both default to the last seven days.
	MetricsQuery struct {
		Start string `query:"start" validate:"omitempty,datetime=2006-01-02"`
		End   string `query:"end" validate:"omitempty,datetime=2006-01-02"`
		Limit int    `query:"limit" validate:"min=0,max=100"`
	}
)

func NewMetricsHandler(svc MetricsService) *MetricsHandler {
	return &MetricsHandler{
		validate: validator.New(),
		service:  svc,
		now:      time.Now,
	}
}

// window turns the inclusive query dates into a UTC [start, end) range.
func (h *MetricsHandler) window(q MetricsQuery) (time.Time, time.Time, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)

	end := today.AddDate(0, 0, 1)
	if q.End != "" {
		d, err := time.Parse(dateLayout, q.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
		end = d.AddDate(0, 0, 1)
	}

	start := end.AddDate(0, 0, -defaultMetricDays)
	if q.Start != "" {
		d, err := time.Parse(dateLayout, q.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
		start = d
	}

	return start, end, nil
}

func (h *MetricsHandler) bindWindow(c echo.Context) (MetricsQuery, time.Time, time.Time, error) {
	var q MetricsQuery
	if err := c.Bind(&q); err != nil {
		return q, time.Time{}, time.Time{}, err
	}
	if err := h.validate.Struct(&q); err != nil {
		return q, time.Time{}, time.Time{}, err
	}
	start, end, err := h.window(q)
	return q, start, end, err
}

// GET /api/v1/admin/recommendations/metrics?start=2026-01-01&end=2026-01-07
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	_, start, end, err := h.bindWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	report, err := h.service.GetMetrics(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

// GET /api/v1/admin/recommendations/metrics/daily
func (h *MetricsHandler) GetDailyMetrics(c echo.Context) error {
	_, start, end, err := h.bindWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	days, err := h.service.GetDailyMetrics(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(days))
}

// GET /api/v1/admin/recommendations/metrics/top-clicked?limit=20
func (h *MetricsHandler) GetTopClicked(c echo.Context) error {
	q, start, end, err := h.bindWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	rows, err := h.service.GetTopClicked(c.Request().Context(), start, end, q.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}
