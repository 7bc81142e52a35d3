// internal/services/withdrawal_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/models"
)

func newWithdrawalFixture(t *testing.T) (*gorm.DB, *WithdrawalService, *WalletService, *models.User) {
	t.Helper()

	db := newTestDB(t)
	cfg := testConfig()
	wallet := NewWalletService(db)
	notifications := NewNotificationService(db)
	service := NewWithdrawalService(db, wallet, notifications, cfg)
	producer := createTestUser(t, db, models.UserRoleProducer, 100)
	return db, service, wallet, producer
}

func TestWithdrawalBelowMinimum(t *testing.T) {
	_, service, _, producer := newWithdrawalFixture(t)

	_, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      5,
		PayPalEmail: "producer@example.com",
	})
	assert.ErrorIs(t, err, ErrBelowMinimumPayout)
}

func TestWithdrawalDebitsWallet(t *testing.T) {
	db, service, wallet, producer := newWithdrawalFixture(t)

	withdrawal, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      60,
		PayPalEmail: "producer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusUnpaid, withdrawal.Status)
	assert.Equal(t, 60.0, withdrawal.Amount)

	balance, err := wallet.Balance(producer.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, balance)

	var txn models.WalletTransaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", producer.ID, models.WalletTransactionTypeDebit).First(&txn).Error)
	assert.Equal(t, "withdrawal", txn.ReferenceType)
	require.NotNil(t, txn.ReferenceID)
	assert.Equal(t, withdrawal.ID, *txn.ReferenceID)
}

func TestWithdrawalInsufficientBalanceLeavesNoRow(t *testing.T) {
	db, service, wallet, producer := newWithdrawalFixture(t)

	_, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      500,
		PayPalEmail: "producer@example.com",
	})

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)

	// The rollback removed the withdrawal row along with the debit.
	var count int64
	db.Model(&models.Withdrawal{}).Where("producer_id = ?", producer.ID).Count(&count)
	assert.Zero(t, count)

	balance, err := wallet.Balance(producer.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)
}

func TestWithdrawalCancelRestoresBalance(t *testing.T) {
	db, service, wallet, producer := newWithdrawalFixture(t)
	admin := createTestUser(t, db, models.UserRoleAdmin, 0)

	withdrawal, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      60,
		PayPalEmail: "producer@example.com",
	})
	require.NoError(t, err)

	updated, err := service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusCancelled,
		Note:   "requested by producer",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusCancelled, updated.Status)

	balance, err := wallet.Balance(producer.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)

	// A cancelled withdrawal is terminal.
	_, err = service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{Status: models.WithdrawalStatusPaid})
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
}

func TestWithdrawalPaidLinksReleasedPurchases(t *testing.T) {
	db, service, _, producer := newWithdrawalFixture(t)
	admin := createTestUser(t, db, models.UserRoleAdmin, 0)

	// A purchase whose earnings were already released to the producer.
	buyer := createTestUser(t, db, models.UserRoleBuyer, 0)
	beat := createTestBeat(t, db, producer.ID)
	now := time.Now()
	purchase := &models.Purchase{
		BuyerID:        buyer.ID,
		BeatID:         beat.ID,
		LicenseID:      createTestLicense(t, db, models.LicenseNameBasic, 29.99).ID,
		Price:          100,
		Commission:     30,
		SellerEarnings: 70,
		CardAmount:     100,
		Currency:       "USD",
		PayoutStatus:   models.PayoutStatusPaid,
		RefundStatus:   models.RefundStatusNone,
		HoldUntil:      now.Add(-24 * time.Hour),
		ReleasedAt:     &now,
	}
	require.NoError(t, db.Create(purchase).Error)

	withdrawal, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      70,
		PayPalEmail: "producer@example.com",
	})
	require.NoError(t, err)

	updated, err := service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPaid, updated.Status)
	assert.NotNil(t, updated.ProcessedAt)

	var reloaded models.Purchase
	require.NoError(t, db.First(&reloaded, "id = ?", purchase.ID).Error)
	require.NotNil(t, reloaded.WithdrawalID)
	assert.Equal(t, withdrawal.ID, *reloaded.WithdrawalID)
}

func TestWithdrawalPaidSkipsLaterReleases(t *testing.T) {
	db, service, _, producer := newWithdrawalFixture(t)
	admin := createTestUser(t, db, models.UserRoleAdmin, 0)
	beat := createTestBeat(t, db, producer.ID)
	license := createTestLicense(t, db, models.LicenseNameBasic, 29.99)

	settledPurchase := func(releasedAt time.Time) *models.Purchase {
		buyer := createTestUser(t, db, models.UserRoleBuyer, 0)
		purchase := &models.Purchase{
			BuyerID:        buyer.ID,
			BeatID:         beat.ID,
			LicenseID:      license.ID,
			Price:          100,
			Commission:     30,
			SellerEarnings: 70,
			CardAmount:     100,
			Currency:       "USD",
			PayoutStatus:   models.PayoutStatusPaid,
			RefundStatus:   models.RefundStatusNone,
			HoldUntil:      releasedAt.Add(-14 * 24 * time.Hour),
			ReleasedAt:     &releasedAt,
		}
		require.NoError(t, db.Create(purchase).Error)
		return purchase
	}

	before := settledPurchase(time.Now().Add(-time.Hour))

	withdrawal, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      70,
		PayPalEmail: "producer@example.com",
	})
	require.NoError(t, err)

	// Earnings released after the payout was requested did not fund it.
	after := settledPurchase(withdrawal.CreatedAt.Add(time.Hour))

	_, err = service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusPaid,
	})
	require.NoError(t, err)

	var linked, unlinked models.Purchase
	require.NoError(t, db.First(&linked, "id = ?", before.ID).Error)
	require.NotNil(t, linked.WithdrawalID)
	assert.Equal(t, withdrawal.ID, *linked.WithdrawalID)

	require.NoError(t, db.First(&unlinked, "id = ?", after.ID).Error)
	assert.Nil(t, unlinked.WithdrawalID)
}

func TestWithdrawalBlockedTransitions(t *testing.T) {
	db, service, wallet, producer := newWithdrawalFixture(t)
	admin := createTestUser(t, db, models.UserRoleAdmin, 0)

	withdrawal, err := service.RequestWithdrawal(producer.ID, &WithdrawalRequest{
		Amount:      50,
		PayPalEmail: "producer@example.com",
	})
	require.NoError(t, err)

	_, err = service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusBlocked,
		Note:   "flagged for review",
	})
	require.NoError(t, err)

	// Re-blocking a blocked withdrawal is not a transition.
	_, err = service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusBlocked,
	})
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)

	// Blocked can still resolve to cancelled, which restores the funds.
	_, err = service.UpdateWithdrawal(withdrawal.ID, admin.ID, &UpdateWithdrawalRequest{
		Status: models.WithdrawalStatusCancelled,
	})
	require.NoError(t, err)

	balance, err := wallet.Balance(producer.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)
}
