// internal/services/dispute_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

var (
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrNotPurchaseOwner    = errors.New("purchase does not belong to this buyer")
	ErrAlreadyDisputed     = errors.New("purchase is already under dispute")
	ErrAlreadyRefunded     = errors.New("purchase has already been refunded")
	ErrAlreadyWithdrawn    = errors.New("purchase earnings have already been withdrawn")
	ErrInvalidTransition   = errors.New("invalid dispute status transition")
	ErrDisputeNotResolved  = errors.New("purchase can only be refunded after its dispute is resolved")
	ErrPurchaseNotDisputed = errors.New("purchase is not under dispute")
)

// validTransitions is the dispute state machine:
// open -> under_review -> {resolved, rejected}, both terminal.
var validTransitions = map[models.DisputeStatus][]models.DisputeStatus{
	models.DisputeStatusOpen:        {models.DisputeStatusUnderReview},
	models.DisputeStatusUnderReview: {models.DisputeStatusResolved, models.DisputeStatusRejected},
}

type DisputeService struct {
	db            *gorm.DB
	wallet        *WalletService
	payments      *PaymentService
	notifications *NotificationService
}

type FileDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

type UpdateDisputeRequest struct {
	Status        models.DisputeStatus `json:"status" validate:"required,oneof=under_review resolved rejected"`
	AdminResponse string               `json:"admin_response,omitempty"`
	Resolution    string               `json:"resolution,omitempty"`
}

func NewDisputeService(db *gorm.DB, wallet *WalletService, payments *PaymentService, notifications *NotificationService) *DisputeService {
	return &DisputeService{
		db:            db,
		wallet:        wallet,
		payments:      payments,
		notifications: notifications,
	}
}

// FileDispute freezes a purchase's settlement: refund_status moves to
// disputed, which removes the purchase from the release sweep's candidate
// set until an admin adjudicates.
func (s *DisputeService) FileDispute(buyerID, purchaseID uuid.UUID, req *FileDisputeRequest) (*models.Dispute, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var dispute *models.Dispute
	var purchase models.Purchase

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Beat").First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if purchase.BuyerID != buyerID {
			return ErrNotPurchaseOwner
		}
		if purchase.RefundStatus == models.RefundStatusDisputed {
			return ErrAlreadyDisputed
		}
		if purchase.RefundStatus == models.RefundStatusRefunded {
			return ErrAlreadyRefunded
		}
		if purchase.WithdrawalID != nil {
			return ErrAlreadyWithdrawn
		}

		// Guard on refund_status so a concurrent filing loses here.
		result := tx.Model(&models.Purchase{}).
			Where("id = ? AND refund_status = ?", purchaseID, models.RefundStatusNone).
			Updates(map[string]interface{}{
				"refund_status": models.RefundStatusDisputed,
				"flag_reason":   req.Reason,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to flag purchase: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyDisputed
		}

		dispute = &models.Dispute{
			PurchaseID: purchaseID,
			RaisedBy:   buyerID,
			Reason:     req.Reason,
			Status:     models.DisputeStatusOpen,
		}
		if err := tx.Create(dispute).Error; err != nil {
			return fmt.Errorf("failed to create dispute: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	disputesTotal.WithLabelValues("filed").Inc()
	s.notifications.DisputeFiled(dispute, &purchase)

	return dispute, nil
}

// UpdateDispute applies an admin transition. Rejection unfreezes the
// purchase (refund_status back to none), restoring release eligibility.
// Resolution keeps the freeze; money only moves on the explicit refund
// call.
func (s *DisputeService) UpdateDispute(disputeID, adminID uuid.UUID, req *UpdateDisputeRequest) (*models.Dispute, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var dispute models.Dispute

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Purchase").First(&dispute, "id = ?", disputeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDisputeNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !canTransition(dispute.Status, req.Status) {
			return ErrInvalidTransition
		}

		updates := map[string]interface{}{"status": req.Status}
		if req.AdminResponse != "" {
			updates["admin_response"] = req.AdminResponse
		}

		if req.Status == models.DisputeStatusResolved || req.Status == models.DisputeStatusRejected {
			now := time.Now()
			updates["resolution"] = req.Resolution
			updates["resolved_by"] = adminID
			updates["resolved_at"] = now
		}

		if err := tx.Model(&dispute).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update dispute: %w", err)
		}

		if req.Status == models.DisputeStatusRejected {
			// Unfreeze: the purchase re-enters the release sweep.
			if err := tx.Model(&models.Purchase{}).
				Where("id = ?", dispute.PurchaseID).
				Updates(map[string]interface{}{
					"refund_status": models.RefundStatusNone,
					"flag_reason":   "",
				}).Error; err != nil {
				return fmt.Errorf("failed to unflag purchase: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	disputesTotal.WithLabelValues(string(req.Status)).Inc()
	s.notifications.DisputeUpdated(&dispute)

	if err := s.db.Preload("Purchase").First(&dispute, "id = ?", disputeID).Error; err != nil {
		logrus.WithError(err).Warn("Failed to reload dispute after update")
	}

	return &dispute, nil
}

// RefundPurchase executes the refund an admin owes the buyer after
// resolving a dispute in their favor: the card portion reverses through
// its gateway, the wallet portion is credited back, and a purchase whose
// earnings were already released claws them back from the producer.
func (s *DisputeService) RefundPurchase(purchaseID, adminID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Beat").First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if purchase.RefundStatus == models.RefundStatusRefunded {
			return ErrAlreadyRefunded
		}
		if purchase.RefundStatus != models.RefundStatusDisputed {
			return ErrPurchaseNotDisputed
		}

		var dispute models.Dispute
		if err := tx.Where("purchase_id = ? AND status = ?", purchaseID, models.DisputeStatusResolved).
			Order("created_at DESC").First(&dispute).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDisputeNotResolved
			}
			return fmt.Errorf("database error: %w", err)
		}

		if purchase.WalletAmount > 0 {
			if _, err := s.wallet.CreditTx(tx, purchase.BuyerID, purchase.WalletAmount, "USD",
				fmt.Sprintf("Refund for beat %q", purchase.Beat.Title),
				"purchase_refund", &purchase.ID); err != nil {
				return err
			}
		}

		// Earnings already settled to the producer come back out.
		if purchase.PayoutStatus == models.PayoutStatusPaid {
			if _, err := s.wallet.DebitTx(tx, purchase.Beat.ProducerID, purchase.SellerEarnings, "USD",
				fmt.Sprintf("Earnings reversal for refunded beat %q", purchase.Beat.Title),
				"purchase_refund", &purchase.ID); err != nil {
				return err
			}
		}

		now := time.Now()
		result := tx.Model(&models.Purchase{}).
			Where("id = ? AND refund_status = ?", purchaseID, models.RefundStatusDisputed).
			Updates(map[string]interface{}{
				"refund_status": models.RefundStatusRefunded,
				"refunded_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark purchase refunded: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyRefunded
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// The card leg reverses only after the wallet movements commit, so a
	// failed claw-back can never strand an already-executed gateway refund.
	// The refund_status flip above is the idempotency marker: a retry stops
	// at ErrAlreadyRefunded instead of charging the gateway twice.
	if purchase.CardAmount > 0 {
		if err := s.payments.RefundPayment(&GatewayRefundRequest{
			TransactionID: purchase.PaymentReference,
			Amount:        purchase.CardAmount,
			Currency:      purchase.Currency,
			Gateway:       purchase.Gateway,
		}); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"purchase_id":       purchase.ID,
				"payment_reference": purchase.PaymentReference,
			}).Error("Card refund failed after wallet settlement; replay against the gateway")
			return nil, fmt.Errorf("card refund failed: %w", err)
		}
	}

	disputesTotal.WithLabelValues("refunded").Inc()
	s.notifications.PurchaseRefunded(&purchase)

	if err := s.db.Preload("Beat").Preload("License").First(&purchase, "id = ?", purchaseID).Error; err != nil {
		logrus.WithError(err).Warn("Failed to reload purchase after refund")
	}

	return &purchase, nil
}

func (s *DisputeService) GetDispute(disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := s.db.Preload("Purchase").Preload("Purchase.Beat").First(&dispute, "id = ?", disputeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &dispute, nil
}

func (s *DisputeService) ListDisputes(status *models.DisputeStatus, params utils.PaginationParams) ([]models.Dispute, int64, error) {
	query := s.db.Model(&models.Dispute{}).Preload("Purchase").Preload("Purchase.Beat")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count disputes: %w", err)
	}

	allowedSortFields := []string{"created_at", "status", "resolved_at"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var disputes []models.Dispute
	if err := query.Find(&disputes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch disputes: %w", err)
	}

	return disputes, total, nil
}

func canTransition(from, to models.DisputeStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
