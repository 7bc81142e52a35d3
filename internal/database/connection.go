// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/models"
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

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Beat{},
		&models.License{},
		&models.BeatLicense{},
		&models.Purchase{},
		&models.WalletTransaction{},
		&models.Withdrawal{},
		&models.Dispute{},
		&models.Notification{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Release sweep scans: unpaid, undisputed, hold elapsed
		"CREATE INDEX IF NOT EXISTS idx_purchases_release_scan ON purchases(payout_status, refund_status, hold_until)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_created_at ON purchases(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_beats_producer_status ON beats(producer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_wallet_transactions_user_created ON wallet_transactions(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_disputes_status_created ON disputes(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_withdrawals_producer_status ON withdrawals(producer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the default admin account and the global license
// templates the purchase flow depends on.
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@beatmarket.io",
			Role:     models.UserRoleAdmin,
			Status:   models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		logrus.Info("Default admin user created")
	}

	defaultLicenses := []models.License{
		{
			Name:         models.LicenseNameBasic,
			UsageRights:  "MP3 lease. Up to 5,000 streams, non-profit performances. Producer keeps full ownership.",
			DefaultPrice: 29.99,
			IsActive:     true,
		},
		{
			Name:         models.LicenseNamePremium,
			UsageRights:  "WAV + trackout stems. Up to 500,000 streams, monetized channels, paid performances.",
			DefaultPrice: 99.99,
			IsActive:     true,
		},
		{
			Name:         models.LicenseNameExclusive,
			UsageRights:  "Full exclusive rights. Beat is removed from sale permanently once purchased.",
			DefaultPrice: 499.99,
			IsActive:     true,
		},
	}

	for _, license := range defaultLicenses {
		var count int64
		db.Model(&models.License{}).Where("name = ?", license.Name).Count(&count)

		if count == 0 {
			if err := db.Create(&license).Error; err != nil {
				return fmt.Errorf("failed to seed license %s: %w", license.Name, err)
			}
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}
