// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The schema has to migrate on sqlite, which rejects function-call column
// defaults. IDs come from BeforeCreate instead of the database.
func TestBaseModelMigratesAndAssignsID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&License{}))

	license := &License{
		Name:         "Migration Check",
		UsageRights:  "non-exclusive streaming",
		DefaultPrice: 29.99,
		IsActive:     true,
	}
	require.NoError(t, db.Create(license).Error)
	assert.NotEqual(t, uuid.Nil, license.ID)

	// A caller-supplied ID survives the hook.
	fixed := uuid.New()
	second := &License{
		BaseModel:    BaseModel{ID: fixed},
		Name:         "Fixed ID",
		UsageRights:  "non-exclusive streaming",
		DefaultPrice: 9.99,
		IsActive:     true,
	}
	require.NoError(t, db.Create(second).Error)
	assert.Equal(t, fixed, second.ID)
}
