package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Log       LogConfig
	Reco      RecoConfig
	Tracker   TrackerConfig
	Report    ReportConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SlowThreshold time.Duration
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Enabled       bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// RecoConfig holds every recommender knob as read from the environment.
type RecoConfig struct {
	MinUserViewsForCollaborative  int
	MinTotalViewsForCollaborative int64
	IntermediateUserViews         int
	IntermediateTotalViews        int64
	DefaultContentWeight          float64
	IntermediateContentWeight     float64
	BalancedContentWeight         float64

	IsbnWeight           float64
	SubjectWeight        float64
	DepartmentWeight     float64
	RecencyWeight        float64
	RecencyLambda        float64
	RecencyThresholdDays int
	ClickWeight          float64
	WishlistWeight       float64
	ViewWeight           float64

	MaxViewsToFetch             int
	MaxClicksToFetch            int
	MaxWishlistsToFetch         int
	PersonalizedCandidateLimit  int
	CollaborativeCandidateLimit int
	CollaborativeCountCap       int
	SimilarCandidateLimit       int
	CollaborativeTimeout        time.Duration

	SlotMixEnabled           bool
	SlotMixSize              int
	MaxSlotSize              int
	PersonalizedRatio        float64
	PopularRatio             float64
	FreshRatio               float64
	ExploreEpsilon           float64
	ExploreSize              int
	PopularLookbackDays      int
	FreshWindowDays          int
	PopularPoolSize          int
	FreshPoolSize            int
	PopularTTL               time.Duration
	FreshTTL                 time.Duration
	PoolStore                string
	LocalCacheMaxMB          int
	BreakerFailureRatio      float64
	BreakerMinRequests       uint32
	BreakerOpenTimeout       time.Duration
	DefaultSimilarLimit      int
	MaxSimilarLimit          int
	MinUserViewsForReporting int
}

type TrackerConfig struct {
	QueueSize     int
	Workers       int
	WriteTimeout  time.Duration
	DedupLocation string
}

type ReportConfig struct {
	Enabled bool
	Spec    string
}

type RateLimitConfig struct {
	TrackingPerSecond float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "campusBooks Recommender"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Name:          getEnv("DB_NAME", "campus_books"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			SlowThreshold: getEnvDuration("DB_SLOW_THRESHOLD", 200*time.Millisecond),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:       getEnvBool("REDIS_ENABLED", false),
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
		Reco: RecoConfig{
			MinUserViewsForCollaborative:  getEnvInt("RECO_MIN_USER_VIEWS_COLLABORATIVE", 10),
			MinTotalViewsForCollaborative: int64(getEnvInt("RECO_MIN_TOTAL_VIEWS_COLLABORATIVE", 1000)),
			IntermediateUserViews:         getEnvInt("RECO_INTERMEDIATE_USER_VIEWS", 30),
			IntermediateTotalViews:        int64(getEnvInt("RECO_INTERMEDIATE_TOTAL_VIEWS", 5000)),
			DefaultContentWeight:          getEnvFloat("RECO_DEFAULT_CONTENT_WEIGHT", 0.90),
			IntermediateContentWeight:     getEnvFloat("RECO_INTERMEDIATE_CONTENT_WEIGHT", 0.70),
			BalancedContentWeight:         getEnvFloat("RECO_BALANCED_CONTENT_WEIGHT", 0.50),

			IsbnWeight:           getEnvFloat("RECO_ISBN_WEIGHT", 0.50),
			SubjectWeight:        getEnvFloat("RECO_SUBJECT_WEIGHT", 0.25),
			DepartmentWeight:     getEnvFloat("RECO_DEPARTMENT_WEIGHT", 0.15),
			RecencyWeight:        getEnvFloat("RECO_RECENCY_WEIGHT", 0.10),
			RecencyLambda:        getEnvFloat("RECO_RECENCY_LAMBDA", 0.1),
			RecencyThresholdDays: getEnvInt("RECO_RECENCY_THRESHOLD_DAYS", 7),
			ClickWeight:          getEnvFloat("RECO_CLICK_WEIGHT", 1.0),
			WishlistWeight:       getEnvFloat("RECO_WISHLIST_WEIGHT", 0.7),
			ViewWeight:           getEnvFloat("RECO_VIEW_WEIGHT", 0.3),

			MaxViewsToFetch:             getEnvInt("RECO_MAX_VIEWS_TO_FETCH", 30),
			MaxClicksToFetch:            getEnvInt("RECO_MAX_CLICKS_TO_FETCH", 20),
			MaxWishlistsToFetch:         getEnvInt("RECO_MAX_WISHLISTS_TO_FETCH", 15),
			PersonalizedCandidateLimit:  getEnvInt("RECO_PERSONALIZED_CANDIDATE_LIMIT", 500),
			CollaborativeCandidateLimit: getEnvInt("RECO_COLLABORATIVE_CANDIDATE_LIMIT", 50),
			CollaborativeCountCap:       getEnvInt("RECO_COLLABORATIVE_COUNT_CAP", 20),
			SimilarCandidateLimit:       getEnvInt("RECO_SIMILAR_CANDIDATE_LIMIT", 200),
			CollaborativeTimeout:        getEnvDuration("RECO_COLLABORATIVE_TIMEOUT", 300*time.Millisecond),

			SlotMixEnabled:           getEnvBool("RECO_SLOT_MIX_ENABLED", true),
			SlotMixSize:              getEnvInt("RECO_SLOT_MIX_SIZE", 10),
			MaxSlotSize:              getEnvInt("RECO_MAX_SLOT_SIZE", 50),
			PersonalizedRatio:        getEnvFloat("RECO_PERSONALIZED_RATIO", 1.0),
			PopularRatio:             getEnvFloat("RECO_POPULAR_RATIO", 0),
			FreshRatio:               getEnvFloat("RECO_FRESH_RATIO", 0),
			ExploreEpsilon:           getEnvFloat("RECO_EXPLORE_EPSILON", 0),
			ExploreSize:              getEnvInt("RECO_EXPLORE_SIZE", 2),
			PopularLookbackDays:      getEnvInt("RECO_POPULAR_LOOKBACK_DAYS", 7),
			FreshWindowDays:          getEnvInt("RECO_FRESH_WINDOW_DAYS", 2),
			PopularPoolSize:          getEnvInt("RECO_POPULAR_POOL_SIZE", 50),
			FreshPoolSize:            getEnvInt("RECO_FRESH_POOL_SIZE", 50),
			PopularTTL:               getEnvDuration("RECO_POPULAR_TTL", 60*time.Second),
			FreshTTL:                 getEnvDuration("RECO_FRESH_TTL", 60*time.Second),
			PoolStore:                getEnv("RECO_POOL_STORE", "local"),
			LocalCacheMaxMB:          getEnvInt("RECO_LOCAL_CACHE_MAX_MB", 16),
			BreakerFailureRatio:      getEnvFloat("RECO_BREAKER_FAILURE_RATIO", 0.5),
			BreakerMinRequests:       uint32(getEnvInt("RECO_BREAKER_MIN_REQUESTS", 5)),
			BreakerOpenTimeout:       getEnvDuration("RECO_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			DefaultSimilarLimit:      getEnvInt("RECO_DEFAULT_SIMILAR_LIMIT", 6),
			MaxSimilarLimit:          getEnvInt("RECO_MAX_SIMILAR_LIMIT", 50),
			MinUserViewsForReporting: getEnvInt("RECO_MIN_USER_VIEWS_REPORTING", 10),
		},
		Tracker: TrackerConfig{
			QueueSize:     getEnvInt("TRACKER_QUEUE_SIZE", 1024),
			Workers:       getEnvInt("TRACKER_WORKERS", 2),
			WriteTimeout:  getEnvDuration("TRACKER_WRITE_TIMEOUT", 2*time.Second),
			DedupLocation: getEnv("TRACKER_DEDUP_LOCATION", "UTC"),
		},
		Report: ReportConfig{
			Enabled: getEnvBool("REPORT_ENABLED", true),
			Spec:    getEnv("REPORT_CRON", "5 0 * * *"),
		},
		RateLimit: RateLimitConfig{
			TrackingPerSecond: getEnvFloat("RATE_LIMIT_TRACKING_PER_SECOND", 20),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Reco.PoolStore == "redis" && !cfg.Redis.Enabled {
		return nil, errors.New("redis pool store requires REDIS_ENABLED=true")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}

	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}

	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}

	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}

	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
