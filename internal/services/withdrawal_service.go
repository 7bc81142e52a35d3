// internal/services/withdrawal_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

var (
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrBelowMinimumPayout   = errors.New("amount is below the minimum payout")
	ErrWithdrawalNotPending = errors.New("withdrawal is not in a state that allows this transition")
)

// WithdrawalService moves earned wallet balance out to an external
// account. The wallet debit happens up front, so an unpaid withdrawal
// already holds the funds; cancelling returns them.
type WithdrawalService struct {
	db            *gorm.DB
	wallet        *WalletService
	notifications *NotificationService
	cfg           *config.Config
}

type WithdrawalRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	PayPalEmail string  `json:"paypal_email" validate:"required,email"`
}

type UpdateWithdrawalRequest struct {
	Status models.WithdrawalStatus `json:"status" validate:"required,oneof=paid blocked cancelled"`
	Note   string                  `json:"note,omitempty"`
}

func NewWithdrawalService(db *gorm.DB, wallet *WalletService, notifications *NotificationService, cfg *config.Config) *WithdrawalService {
	return &WithdrawalService{
		db:            db,
		wallet:        wallet,
		notifications: notifications,
		cfg:           cfg,
	}
}

func (s *WithdrawalService) RequestWithdrawal(producerID uuid.UUID, req *WithdrawalRequest) (*models.Withdrawal, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.Amount < s.cfg.Payment.MinimumPayout {
		return nil, fmt.Errorf("%w: minimum payout is $%.2f", ErrBelowMinimumPayout, s.cfg.Payment.MinimumPayout)
	}

	var withdrawal *models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		withdrawal = &models.Withdrawal{
			ProducerID:  producerID,
			Amount:      req.Amount,
			PayPalEmail: req.PayPalEmail,
			Status:      models.WithdrawalStatusUnpaid,
		}
		if err := tx.Create(withdrawal).Error; err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}

		if _, err := s.wallet.DebitTx(tx, producerID, req.Amount, "USD",
			fmt.Sprintf("Withdrawal to %s", req.PayPalEmail),
			"withdrawal", &withdrawal.ID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.WithdrawalRequested(withdrawal)
	return withdrawal, nil
}

// UpdateWithdrawal applies an admin transition. Cancelling restores the
// wallet balance; marking paid stamps processed_at and back-links the
// producer's settled purchases that were not yet tied to a payout.
func (s *WithdrawalService) UpdateWithdrawal(withdrawalID, adminID uuid.UUID, req *UpdateWithdrawalRequest) (*models.Withdrawal, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var withdrawal models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&withdrawal, "id = ?", withdrawalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		switch withdrawal.Status {
		case models.WithdrawalStatusUnpaid:
			// all transitions allowed
		case models.WithdrawalStatusBlocked:
			if req.Status == models.WithdrawalStatusBlocked {
				return ErrWithdrawalNotPending
			}
		default:
			return ErrWithdrawalNotPending
		}

		updates := map[string]interface{}{"status": req.Status}
		if req.Note != "" {
			updates["note"] = req.Note
		}

		now := time.Now()
		switch req.Status {
		case models.WithdrawalStatusPaid:
			updates["processed_at"] = now
		case models.WithdrawalStatusCancelled:
			if _, err := s.wallet.CreditTx(tx, withdrawal.ProducerID, withdrawal.Amount, "USD",
				"Cancelled withdrawal refund", "withdrawal", &withdrawal.ID); err != nil {
				return err
			}
		}

		if err := tx.Model(&withdrawal).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update withdrawal: %w", err)
		}

		if req.Status == models.WithdrawalStatusPaid {
			// Tie the paid-out purchases to this withdrawal for audit.
			// Only earnings released before the withdrawal was requested
			// can have funded it, so later releases stay unlinked.
			if err := tx.Model(&models.Purchase{}).
				Where("beat_id IN (?) AND payout_status = ? AND withdrawal_id IS NULL AND released_at <= ?",
					tx.Model(&models.Beat{}).Select("id").Where("producer_id = ?", withdrawal.ProducerID),
					models.PayoutStatusPaid, withdrawal.CreatedAt).
				Update("withdrawal_id", withdrawal.ID).Error; err != nil {
				return fmt.Errorf("failed to link purchases to withdrawal: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.WithdrawalUpdated(&withdrawal, req.Status)

	if err := s.db.First(&withdrawal, "id = ?", withdrawalID).Error; err == nil {
		return &withdrawal, nil
	}
	return &withdrawal, nil
}

func (s *WithdrawalService) ProducerWithdrawals(producerID uuid.UUID, params utils.PaginationParams) ([]models.Withdrawal, int64, error) {
	query := s.db.Model(&models.Withdrawal{}).Where("producer_id = ?", producerID)
	return s.listWithdrawals(query, params)
}

func (s *WithdrawalService) AllWithdrawals(status *models.WithdrawalStatus, params utils.PaginationParams) ([]models.Withdrawal, int64, error) {
	query := s.db.Model(&models.Withdrawal{}).Preload("Producer")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return s.listWithdrawals(query, params)
}

func (s *WithdrawalService) listWithdrawals(query *gorm.DB, params utils.PaginationParams) ([]models.Withdrawal, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var withdrawals []models.Withdrawal
	if err := query.Find(&withdrawals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch withdrawals: %w", err)
	}

	return withdrawals, total, nil
}
