// internal/services/wallet_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/currency"
	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// InsufficientBalanceError carries the current balance and the required
// USD amount so clients can prompt a top-up.
type InsufficientBalanceError struct {
	Available float64 `json:"available"`
	Required  float64 `json:"required"`
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: have $%.2f, need $%.2f", e.Available, e.Required)
}

// WalletService owns every mutation of users.wallet_balance. Each credit
// or debit runs atomically and appends exactly one WalletTransaction row
// with a point-in-time balance snapshot.
type WalletService struct {
	db *gorm.DB
}

type WalletOperation struct {
	TransactionID   uuid.UUID `json:"transaction_id"`
	PreviousBalance float64   `json:"previous_balance"`
	NewBalance      float64   `json:"new_balance"`
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

func (s *WalletService) Credit(userID uuid.UUID, amount float64, currencyCode, description, referenceType string, referenceID *uuid.UUID) (*WalletOperation, error) {
	var op *WalletOperation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		op, err = s.CreditTx(tx, userID, amount, currencyCode, description, referenceType, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *WalletService) Debit(userID uuid.UUID, amount float64, currencyCode, description, referenceType string, referenceID *uuid.UUID) (*WalletOperation, error) {
	var op *WalletOperation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		op, err = s.DebitTx(tx, userID, amount, currencyCode, description, referenceType, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// CreditTx performs a credit inside the caller's transaction, for workflows
// that bundle wallet movement with other writes (purchase, release, refund).
func (s *WalletService) CreditTx(tx *gorm.DB, userID uuid.UUID, amount float64, currencyCode, description, referenceType string, referenceID *uuid.UUID) (*WalletOperation, error) {
	usd, err := s.toUSD(amount, &currencyCode)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + ?", usd))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.appendTransaction(tx, userID, models.WalletTransactionTypeCredit, amount, currencyCode, usd, description, referenceType, referenceID)
}

// DebitTx performs a debit inside the caller's transaction. The balance
// check and the write are a single guarded UPDATE, so two concurrent
// debits can never both pass on a stale balance.
func (s *WalletService) DebitTx(tx *gorm.DB, userID uuid.UUID, amount float64, currencyCode, description, referenceType string, referenceID *uuid.UUID) (*WalletOperation, error) {
	usd, err := s.toUSD(amount, &currencyCode)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, usd).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance - ?", usd))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to debit wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var user models.User
		if err := tx.Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load user balance: %w", err)
		}
		return nil, &InsufficientBalanceError{
			Available: currency.RoundCents(user.WalletBalance),
			Required:  usd,
		}
	}

	return s.appendTransaction(tx, userID, models.WalletTransactionTypeDebit, amount, currencyCode, usd, description, referenceType, referenceID)
}

func (s *WalletService) Balance(userID uuid.UUID) (float64, error) {
	var user models.User
	if err := s.db.Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to load user balance: %w", err)
	}
	return currency.RoundCents(user.WalletBalance), nil
}

func (s *WalletService) Transactions(userID uuid.UUID, params utils.PaginationParams) ([]models.WalletTransaction, int64, error) {
	query := s.db.Model(&models.WalletTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "usd_amount", "type"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.WalletTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch wallet transactions: %w", err)
	}

	return transactions, total, nil
}

func (s *WalletService) toUSD(amount float64, currencyCode *string) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if *currencyCode == "" {
		*currencyCode = "USD"
	}
	*currencyCode = currency.Normalize(*currencyCode)
	return currency.ToUSD(amount, *currencyCode)
}

func (s *WalletService) appendTransaction(tx *gorm.DB, userID uuid.UUID, txnType models.WalletTransactionType, amount float64, currencyCode string, usd float64, description, referenceType string, referenceID *uuid.UUID) (*WalletOperation, error) {
	var user models.User
	if err := tx.Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user balance: %w", err)
	}

	newBalance := currency.RoundCents(user.WalletBalance)
	previousBalance := newBalance - usd
	if txnType == models.WalletTransactionTypeDebit {
		previousBalance = newBalance + usd
	}
	previousBalance = currency.RoundCents(previousBalance)

	txn := &models.WalletTransaction{
		UserID:        userID,
		Type:          txnType,
		Amount:        amount,
		Currency:      currencyCode,
		USDAmount:     usd,
		BalanceAfter:  newBalance,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}

	return &WalletOperation{
		TransactionID:   txn.ID,
		PreviousBalance: previousBalance,
		NewBalance:      newBalance,
	}, nil
}
