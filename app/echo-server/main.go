package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusBooks/app/echo-server/metrics"
	"campusBooks/app/echo-server/router"
	"campusBooks/business/ctr"
	"campusBooks/business/reco"
	"campusBooks/business/tracking"
	"campusBooks/internal/middleware"
	"campusBooks/internal/repository/localcache"
	psqlRepo "campusBooks/internal/repository/postgres"
	redisRepo "campusBooks/internal/repository/redis"
	"campusBooks/internal/rest"
	"campusBooks/pkg/config"
	"campusBooks/pkg/database"
	redisdb "campusBooks/pkg/database/redis"
	"campusBooks/pkg/logger"
	"campusBooks/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment, logger.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.Info("Starting campusBooks recommender", "version", cfg.App.Version)

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	logger.Info("Database connected successfully")

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisdb.CloseRedisClient(redisClient)
		logger.Info("Redis connected successfully")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Pool store
	var poolStore reco.PoolStore
	switch cfg.Reco.PoolStore {
	case "redis":
		poolStore = redisRepo.NewPoolRepository(redisClient)
	default:
		local, err := localcache.NewPoolStore(appCtx, max(cfg.Reco.PopularTTL, cfg.Reco.FreshTTL), cfg.Reco.LocalCacheMaxMB)
		if err != nil {
			logger.Fatal("Failed to init local pool store", "error", err)
		}
		defer local.Close()
		poolStore = local
	}

	var deduper tracking.Deduper
	if redisClient != nil {
		deduper = redisRepo.NewImpressionDeduper(redisClient)
	}

	dedupLocation, err := time.LoadLocation(cfg.Tracker.DedupLocation)
	if err != nil {
		logger.Fatal("Invalid tracker dedup location", "location", cfg.Tracker.DedupLocation, "error", err)
	}

	// Init repo
	behaviorRepo := psqlRepo.NewBehaviorRepository(db)
	listingRepo := psqlRepo.NewListingRepository(db)
	transactionRepo := psqlRepo.NewTransactionRepository(db)
	trackingRepo := psqlRepo.NewTrackingRepository(db)
	metricsRepo := psqlRepo.NewMetricsRepository(db, dedupLocation)

	// Init service
	recoService, err := reco.NewService(behaviorRepo, listingRepo, transactionRepo, poolStore, recoConfig(cfg.Reco))
	if err != nil {
		logger.Fatal("Invalid recommender config", "error", err)
	}

	tracker := tracking.NewTracker(trackingRepo, trackingRepo, deduper, tracking.Config{
		QueueSize:    cfg.Tracker.QueueSize,
		Workers:      cfg.Tracker.Workers,
		WriteTimeout: cfg.Tracker.WriteTimeout,
		Location:     dedupLocation,
	})

	ctrService := ctr.NewService(metricsRepo)

	var reportJob *ctr.ReportJob
	if cfg.Report.Enabled {
		reportJob = ctr.NewReportJob(ctrService, cfg.Report.Spec, dedupLocation)
		if err := reportJob.Start(); err != nil {
			logger.Fatal("Failed to start ctr report", "error", err)
		}
	}

	// Init handler
	recoHandler := rest.NewRecommendationHandler(recoService, tracker)
	trackingHandler := rest.NewTrackingHandler(tracker)
	metricsHandler := rest.NewMetricsHandler(ctrService)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(metrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, rest.HeaderSessionID},
	}))

	trackLimit := echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit.TrackingPerSecond),
			Burst:     max(1, int(cfg.RateLimit.TrackingPerSecond*2)),
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler:  rest.Throttled,
		ErrorHandler: rest.Throttled,
	})

	// Setup routes
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	router.SetRecommendationRoutes(api, recoHandler, trackingHandler, trackLimit)
	router.SetRecommendationAdminRoutes(api, recoHandler, metricsHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if reportJob != nil {
		reportJob.Stop(ctx)
	}

	if err := tracker.Close(ctx); err != nil {
		logger.Error("Tracker drain incomplete", "error", err)
	}

	logger.Info("Server stopped")
}
