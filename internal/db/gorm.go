package db

import (
	"fmt"

	"quantum-collab/internal/config"
	"quantum-collab/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// NewGorm connects to postgres and migrates the collaboration tables
func NewGorm(cfg *config.Config, log zerolog.Logger) (*GormDB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info // shows SQL
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("database connected and migrated")

	return &GormDB{db}, nil
}

// Migrate creates or updates the collaboration tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.CollabSession{},
		&models.DocumentRecord{},
		&models.EditRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
