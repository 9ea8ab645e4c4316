package db

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quote-games/internal/config"
)

// Open connects to Postgres using the configured DATABASE_URL and applies the
// pool settings.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	return conn, nil
}

// Migrate runs GORM auto-migrations for every table. Production deploys use
// cmd/migrate; this keeps dev databases and test databases in sync.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	return conn.AutoMigrate(
		&Quote{},
		&AnarchySession{},
		&AnarchyPlayer{},
		&AnarchyHandCard{},
		&AnarchySubmission{},
		&AnarchyVote{},
		&AnarchyRoundWinner{},
		&AnarchyRoundResult{},
		&BlacklineSession{},
		&BlacklinePlayer{},
		&BlacklineGuess{},
		&AttributionSession{},
		&AttributionPlayer{},
		&AttributionAnswer{},
	)
}
