// internal/services/beat_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

func TestCreateBeat(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)

	beat, err := service.CreateBeat(producer.ID, &CreateBeatRequest{
		Title: "Midnight Drive",
		Genre: "lofi",
		BPM:   85,
		Tags:  []string{"chill", "night"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.BeatStatusEnabled, beat.Status)
	assert.True(t, beat.IsActive)
	assert.Equal(t, producer.ID, beat.ProducerID)

	_, err = service.CreateBeat(producer.ID, &CreateBeatRequest{Title: "ab"})
	assert.Error(t, err)
}

func TestAttachLicenseAndReprice(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)
	beat := createTestBeat(t, db, producer.ID)
	license := createTestLicense(t, db, models.LicenseNameBasic, 29.99)

	attached, err := service.AttachLicense(producer.ID, beat.ID, &AttachLicenseRequest{
		LicenseID: license.ID,
		Price:     49.99,
	})
	require.NoError(t, err)
	assert.Equal(t, 49.99, attached.Price)

	// Attaching the same license again only re-prices it.
	repriced, err := service.AttachLicense(producer.ID, beat.ID, &AttachLicenseRequest{
		LicenseID: license.ID,
		Price:     39.99,
	})
	require.NoError(t, err)
	assert.Equal(t, attached.ID, repriced.ID)
	assert.Equal(t, 39.99, repriced.Price)

	var count int64
	db.Model(&models.BeatLicense{}).Where("beat_id = ?", beat.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDetachLicense(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)
	beat := createTestBeat(t, db, producer.ID)
	license := createTestLicense(t, db, models.LicenseNameBasic, 29.99)
	attachTestLicense(t, db, beat, license, 49.99)

	require.NoError(t, service.DetachLicense(producer.ID, beat.ID, license.ID))

	var count int64
	db.Model(&models.BeatLicense{}).Where("beat_id = ?", beat.ID).Count(&count)
	assert.Zero(t, count)

	// Detaching again reports that the offering is gone.
	assert.ErrorIs(t, service.DetachLicense(producer.ID, beat.ID, license.ID), ErrLicenseNotOffered)

	other := createTestUser(t, db, models.UserRoleProducer, 0)
	assert.ErrorIs(t, service.DetachLicense(other.ID, beat.ID, license.ID), ErrNotBeatOwner)
}

func TestAttachLicenseOwnership(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)
	other := createTestUser(t, db, models.UserRoleProducer, 0)
	beat := createTestBeat(t, db, producer.ID)
	license := createTestLicense(t, db, models.LicenseNameBasic, 29.99)

	_, err := service.AttachLicense(other.ID, beat.ID, &AttachLicenseRequest{
		LicenseID: license.ID,
		Price:     49.99,
	})
	assert.ErrorIs(t, err, ErrNotBeatOwner)
}

func TestModerateBeatBan(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)
	beat := createTestBeat(t, db, producer.ID)

	banned, err := service.ModerateBeat(beat.ID, &ModerateBeatRequest{
		Status: models.BeatStatusBanned,
		Reason: "copyright claim",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BeatStatusBanned, banned.Status)
	assert.False(t, banned.IsActive)
	assert.Equal(t, "copyright claim", banned.FlagReason)

	// Re-enabling clears the flag and restores visibility.
	restored, err := service.ModerateBeat(beat.ID, &ModerateBeatRequest{Status: models.BeatStatusEnabled})
	require.NoError(t, err)
	assert.Equal(t, models.BeatStatusEnabled, restored.Status)
	assert.True(t, restored.IsActive)
	assert.Empty(t, restored.FlagReason)
}

func TestModerateBeatExclusiveSaleIsPermanent(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)
	buyer := createTestUser(t, db, models.UserRoleBuyer, 0)
	beat := createTestBeat(t, db, producer.ID)
	exclusive := createTestLicense(t, db, models.LicenseNameExclusive, 499.99)

	require.NoError(t, db.Create(&models.Purchase{
		BuyerID:        buyer.ID,
		BeatID:         beat.ID,
		LicenseID:      exclusive.ID,
		Price:          500,
		Commission:     150,
		SellerEarnings: 350,
		CardAmount:     500,
		Currency:       "USD",
		PayoutStatus:   models.PayoutStatusUnpaid,
		RefundStatus:   models.RefundStatusNone,
	}).Error)

	require.NoError(t, db.Model(&models.Beat{}).Where("id = ?", beat.ID).
		Updates(map[string]interface{}{"status": models.BeatStatusDisabled, "is_active": false}).Error)

	_, err := service.ModerateBeat(beat.ID, &ModerateBeatRequest{Status: models.BeatStatusEnabled})
	assert.ErrorIs(t, err, ErrBeatExclusivelySold)

	// Non-enabling transitions are still allowed.
	_, err = service.ModerateBeat(beat.ID, &ModerateBeatRequest{Status: models.BeatStatusUnderReview})
	assert.NoError(t, err)
}

func TestListBeatsExcludesModerated(t *testing.T) {
	db := newTestDB(t)
	service := NewBeatService(db)
	producer := createTestUser(t, db, models.UserRoleProducer, 0)

	visible := createTestBeat(t, db, producer.ID)
	hidden := createTestBeat(t, db, producer.ID)
	require.NoError(t, db.Model(&models.Beat{}).Where("id = ?", hidden.ID).
		Updates(map[string]interface{}{"status": models.BeatStatusDisabled, "is_active": false}).Error)

	beats, total, err := service.ListBeats(utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, beats, 1)
	assert.Equal(t, visible.ID, beats[0].ID)

	// The producer still sees everything they uploaded.
	mine, total, err := service.ProducerBeats(producer.ID, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)
}
