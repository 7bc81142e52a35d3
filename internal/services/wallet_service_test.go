// internal/services/wallet_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

func TestWalletCreditDebitRoundTrip(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, models.UserRoleProducer, 0)

	op, err := wallet.Credit(user.ID, 100, "USD", "release", "purchase_release", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, op.PreviousBalance)
	assert.Equal(t, 100.0, op.NewBalance)

	op, err = wallet.Debit(user.ID, 40, "USD", "withdrawal", "withdrawal", nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, op.PreviousBalance)
	assert.Equal(t, 60.0, op.NewBalance)

	balance, err := wallet.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, balance)

	// Exactly one ledger row per operation, each with a balance snapshot.
	var txns []models.WalletTransaction
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("created_at ASC").Find(&txns).Error)
	require.Len(t, txns, 2)
	assert.Equal(t, models.WalletTransactionTypeCredit, txns[0].Type)
	assert.Equal(t, 100.0, txns[0].BalanceAfter)
	assert.Equal(t, models.WalletTransactionTypeDebit, txns[1].Type)
	assert.Equal(t, 60.0, txns[1].BalanceAfter)
}

func TestWalletDebitInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, models.UserRoleBuyer, 20)

	_, err := wallet.Debit(user.ID, 50, "USD", "purchase", "purchase", nil)

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 20.0, insufficient.Available)
	assert.Equal(t, 50.0, insufficient.Required)

	// Balance untouched, no ledger row.
	balance, err := wallet.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, balance)

	var count int64
	db.Model(&models.WalletTransaction{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestWalletCreditForeignCurrency(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, models.UserRoleProducer, 0)

	op, err := wallet.Credit(user.ID, 100, "EUR", "payout", "purchase_release", nil)
	require.NoError(t, err)
	assert.Equal(t, 109.0, op.NewBalance)

	var txn models.WalletTransaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&txn).Error)
	assert.Equal(t, 100.0, txn.Amount)
	assert.Equal(t, "EUR", txn.Currency)
	assert.Equal(t, 109.0, txn.USDAmount)
}

func TestWalletInvalidAmount(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, models.UserRoleBuyer, 10)

	_, err := wallet.Credit(user.ID, 0, "USD", "noop", "", nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = wallet.Debit(user.ID, -5, "USD", "noop", "", nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWalletUnknownUser(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)

	_, err := wallet.Credit(uuid.New(), 10, "USD", "ghost", "", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = wallet.Debit(uuid.New(), 10, "USD", "ghost", "", nil)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestWalletTransactionsPaged(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, models.UserRoleProducer, 0)

	for i := 0; i < 5; i++ {
		_, err := wallet.Credit(user.ID, 10, "USD", "release", "purchase_release", nil)
		require.NoError(t, err)
	}

	txns, total, err := wallet.Transactions(user.ID, utils.PaginationParams{Page: 1, Limit: 3, Sort: "created_at", Order: "desc"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, txns, 3)
}
