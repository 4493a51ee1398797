package dbhelper

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"closetapi/models"
)

func SetupDB(dsn string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	if err := Migrate(db, &models.StyleProfile{}, &models.WardrobeRecord{}, &models.DailyOutfit{}); err != nil {
		return nil, err
	}
	return db, nil
}

// SetupTestDB connects to the TEST_DB_* database. ok is false when TEST_DB_HOST is unset.
func SetupTestDB() (db *gorm.DB, ok bool, err error) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		return nil, false, nil
	}
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("TEST_DB_USERNAME", "closet"),
		getEnv("TEST_DB_PASSWORD", "closet"),
		host,
		getEnv("TEST_DB_PORT", "5432"),
		getEnv("TEST_DB_NAME", "closet_test"),
	)
	db, err = SetupDB(dsn, false)
	return db, true, err
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
