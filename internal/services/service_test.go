// internal/services/service_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/models"
)

// newTestDB opens a fresh in-memory database per test so tests never
// share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
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
	))

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 1,
		},
		Payment: config.PaymentConfig{
			CommissionRate: 0.30,
			HoldDays:       14,
			MinimumPayout:  10.0,
		},
	}
}

func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole, balance float64) *models.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username:      fmt.Sprintf("user_%s", suffix),
		Email:         fmt.Sprintf("user_%s@example.com", suffix),
		Role:          role,
		Status:        models.UserStatusActive,
		WalletBalance: balance,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestLicense(t *testing.T, db *gorm.DB, name string, defaultPrice float64) *models.License {
	t.Helper()

	license := &models.License{
		Name:         name,
		UsageRights:  "test usage rights",
		DefaultPrice: defaultPrice,
		IsActive:     true,
	}
	require.NoError(t, db.Create(license).Error)
	return license
}

func createTestBeat(t *testing.T, db *gorm.DB, producerID uuid.UUID) *models.Beat {
	t.Helper()

	beat := &models.Beat{
		ProducerID: producerID,
		Title:      "Test Beat " + uuid.NewString()[:8],
		Genre:      "trap",
		BPM:        140,
		Status:     models.BeatStatusEnabled,
		IsActive:   true,
	}
	require.NoError(t, db.Create(beat).Error)
	return beat
}

func attachTestLicense(t *testing.T, db *gorm.DB, beat *models.Beat, license *models.License, price float64) *models.BeatLicense {
	t.Helper()

	beatLicense := &models.BeatLicense{
		BeatID:    beat.ID,
		LicenseID: license.ID,
		Price:     price,
	}
	require.NoError(t, db.Create(beatLicense).Error)
	return beatLicense
}
