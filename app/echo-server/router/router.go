package router

import (
	"campusBooks/internal/middleware"
	"campusBooks/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler, tracking *rest.TrackingHandler, trackLimit echo.MiddlewareFunc) {
	reco := api.Group("/recommendations", middleware.OptionalAuth())
	reco.GET("/for-you", handler.ForYou)
	reco.GET("/similar/:id", handler.Similar)
	reco.POST("/track-impression", tracking.TrackImpression, trackLimit)
	reco.POST("/track-click", tracking.TrackClick, trackLimit)
}

func SetRecommendationAdminRoutes(api *echo.Group, reco *rest.RecommendationHandler, metrics *rest.MetricsHandler) {
	admin := api.Group("/admin/recommendations", middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.GET("/debug", reco.Debug)
	admin.GET("/metrics", metrics.GetMetrics)
	admin.GET("/metrics/daily", metrics.GetDailyMetrics)
	admin.GET("/metrics/top-clicked", metrics.GetTopClicked)
}
