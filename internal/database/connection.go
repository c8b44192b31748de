// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soundbridge/backend/internal/config"
	"github.com/soundbridge/backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.AudioTrack{},
		&models.ProtectionRecord{},
		&models.AllowlistEntry{},
		&models.DenylistEntry{},
		&models.ViolationReport{},
		&models.DMCARequest{},
		&models.CopyrightSetting{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_tier_status ON users(subscription_tier, status)",

		// Track indexes
		"CREATE INDEX IF NOT EXISTS idx_audio_tracks_creator ON audio_tracks(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_audio_tracks_status ON audio_tracks(status)",
		"CREATE INDEX IF NOT EXISTS idx_audio_tracks_created_at ON audio_tracks(created_at DESC)",

		// Protection indexes: hash lookups must stay cheap under load
		"CREATE INDEX IF NOT EXISTS idx_protection_records_status ON protection_records(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_protection_records_hash ON protection_records(fingerprint_hash)",
		"CREATE INDEX IF NOT EXISTS idx_allowlist_hash ON allowlist_entries(fingerprint_hash)",
		"CREATE INDEX IF NOT EXISTS idx_denylist_hash ON denylist_entries(fingerprint_hash)",

		// Case indexes: newest-first listings per track
		"CREATE INDEX IF NOT EXISTS idx_violation_reports_track ON violation_reports(track_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_violation_reports_status ON violation_reports(status)",
		"CREATE INDEX IF NOT EXISTS idx_dmca_requests_track ON dmca_requests(track_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_dmca_requests_status ON dmca_requests(status)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username:    "admin",
			DisplayName: "SoundBridge Admin",
			Email:       "admin@soundbridge.live",
			UserType:    models.UserTypeAdmin,
			Tier:        models.TierEnterprise,
			Status:      models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Copyright settings overrides row; empty value keeps compiled defaults.
	var settingCount int64
	db.Model(&models.CopyrightSetting{}).Where("key = ?", "default_settings").Count(&settingCount)
	if settingCount == 0 {
		setting := &models.CopyrightSetting{
			Key:   "default_settings",
			Value: models.JSONB{},
		}
		if err := db.Create(setting).Error; err != nil {
			log.Printf("Warning: Failed to create default copyright settings: %v", err)
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
