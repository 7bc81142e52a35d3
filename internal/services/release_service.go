// internal/services/release_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/models"
)

// ReleaseService settles held seller earnings: once a purchase's hold
// period elapses undisputed, the producer's wallet is credited and the
// purchase flips to paid. The sweep is idempotent and per-purchase
// failures never abort the run.
type ReleaseService struct {
	db            *gorm.DB
	wallet        *WalletService
	notifications *NotificationService
	cfg           *config.Config
}

type ReleasedPurchase struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	ProducerID uuid.UUID `json:"producer_id"`
	Amount     float64   `json:"amount"`
}

type ReleaseError struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	Error      string    `json:"error"`
}

type ReleaseSummary struct {
	ReleasedCount     int                `json:"released_count"`
	ReleasedPurchases []ReleasedPurchase `json:"released_purchases"`
	Errors            []ReleaseError     `json:"errors"`
}

func NewReleaseService(db *gorm.DB, wallet *WalletService, notifications *NotificationService, cfg *config.Config) *ReleaseService {
	return &ReleaseService{
		db:            db,
		wallet:        wallet,
		notifications: notifications,
		cfg:           cfg,
	}
}

// PendingReleases previews the sweep's candidate set: unpaid, undisputed
// purchases whose hold period has elapsed, oldest hold first.
func (s *ReleaseService) PendingReleases(now time.Time) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.
		Where("payout_status = ? AND refund_status = ? AND hold_until <= ?",
			models.PayoutStatusUnpaid, models.RefundStatusNone, now).
		Order("hold_until ASC").
		Preload("Beat").Preload("License").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending releases: %w", err)
	}
	return purchases, nil
}

// ReleaseDueFunds runs the sweep. Each purchase settles in its own
// transaction, so one bad row cannot block or poison the rest.
func (s *ReleaseService) ReleaseDueFunds(now time.Time) (*ReleaseSummary, error) {
	candidates, err := s.PendingReleases(now)
	if err != nil {
		return nil, err
	}

	summary := &ReleaseSummary{
		ReleasedPurchases: []ReleasedPurchase{},
		Errors:            []ReleaseError{},
	}

	for i := range candidates {
		purchase := &candidates[i]
		released, err := s.releaseOne(purchase)
		if err != nil {
			logrus.WithError(err).WithField("purchase_id", purchase.ID).Error("Failed to release purchase funds")
			summary.Errors = append(summary.Errors, ReleaseError{
				PurchaseID: purchase.ID,
				Error:      err.Error(),
			})
			continue
		}
		if released != nil {
			summary.ReleasedCount++
			summary.ReleasedPurchases = append(summary.ReleasedPurchases, *released)
		}
	}

	if summary.ReleasedCount > 0 {
		logrus.WithField("released_count", summary.ReleasedCount).Info("Fund release sweep completed")
	}

	return summary, nil
}

// releaseOne credits the producer and flips payout_status as one atomic
// unit. The guarded flip on payout_status='unpaid' makes re-runs and
// concurrent sweeps settle each purchase at most once.
func (s *ReleaseService) releaseOne(purchase *models.Purchase) (*ReleasedPurchase, error) {
	var released *ReleasedPurchase

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var beat models.Beat
		if err := tx.First(&beat, "id = ?", purchase.BeatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("beat %s missing for purchase", purchase.BeatID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		now := time.Now()
		result := tx.Model(&models.Purchase{}).
			Where("id = ? AND payout_status = ? AND refund_status = ?",
				purchase.ID, models.PayoutStatusUnpaid, models.RefundStatusNone).
			Updates(map[string]interface{}{
				"payout_status": models.PayoutStatusPaid,
				"released_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark purchase paid: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Already settled or disputed since the candidate query ran.
			return nil
		}

		if _, err := s.wallet.CreditTx(tx, beat.ProducerID, purchase.SellerEarnings, "USD",
			fmt.Sprintf("Earnings released for beat %q", beat.Title),
			"purchase_release", &purchase.ID); err != nil {
			return err
		}

		released = &ReleasedPurchase{
			PurchaseID: purchase.ID,
			ProducerID: beat.ProducerID,
			Amount:     purchase.SellerEarnings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if released != nil {
		fundsReleasedTotal.Inc()
		fundsReleasedUSD.Add(released.Amount)
		s.notifications.FundsReleased(released.ProducerID, purchase, released.Amount)
	}

	return released, nil
}
