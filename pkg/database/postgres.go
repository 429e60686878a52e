package database

import (
	"fmt"
	"time"

	"campusBooks/domain"
	"campusBooks/pkg/config"
	"campusBooks/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(cfg.Database.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the tables the recommender owns. Listings, behavior
// signals and transactions belong to the marketplace and are only read.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.RecommendationImpression{},
		&domain.RecommendationClick{},
	); err != nil {
		return fmt.Errorf("failed to migrate tracking tables: %w", err)
	}

	return nil
}
