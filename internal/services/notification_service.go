// internal/services/notification_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

// NotificationService emits in-app notification intents. Delivery
// channels (email, push) are external collaborators and not handled
// here; a failure to record an intent never fails the calling workflow.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Notify(userID uuid.UUID, notificationType, title, message, referenceType string, referenceID *uuid.UUID) {
	notification := &models.Notification{
		UserID:        userID,
		Type:          notificationType,
		Title:         title,
		Message:       message,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"type":    notificationType,
		}).Error("Failed to record notification")
	}
}

func (s *NotificationService) PurchaseConfirmation(purchase *models.Purchase) {
	s.Notify(purchase.BuyerID, "purchase_confirmation", "Purchase complete",
		fmt.Sprintf("You purchased %q under the %s license for $%.2f.",
			purchase.Beat.Title, purchase.License.Name, purchase.Price),
		"purchase", &purchase.ID)
}

func (s *NotificationService) SaleNotification(purchase *models.Purchase) {
	s.Notify(purchase.Beat.ProducerID, "beat_sold", "Your beat sold",
		fmt.Sprintf("%q sold under the %s license. $%.2f will be released after the hold period.",
			purchase.Beat.Title, purchase.License.Name, purchase.SellerEarnings),
		"purchase", &purchase.ID)
}

func (s *NotificationService) FundsReleased(producerID uuid.UUID, purchase *models.Purchase, amount float64) {
	s.Notify(producerID, "funds_released", "Earnings released",
		fmt.Sprintf("$%.2f from a beat sale has been credited to your wallet.", amount),
		"purchase", &purchase.ID)
}

func (s *NotificationService) DisputeFiled(dispute *models.Dispute, purchase *models.Purchase) {
	s.Notify(purchase.Beat.ProducerID, "dispute_filed", "A sale was disputed",
		fmt.Sprintf("The buyer disputed their purchase of %q. Earnings are frozen until the dispute is resolved.",
			purchase.Beat.Title),
		"dispute", &dispute.ID)
	s.Notify(dispute.RaisedBy, "dispute_filed", "Dispute received",
		"Your dispute has been filed and will be reviewed by our team.",
		"dispute", &dispute.ID)
}

func (s *NotificationService) DisputeUpdated(dispute *models.Dispute) {
	var buyerMessage string
	switch dispute.Status {
	case models.DisputeStatusUnderReview:
		buyerMessage = "Your dispute is now under review."
	case models.DisputeStatusResolved:
		buyerMessage = "Your dispute was resolved in your favor. A refund will follow."
	case models.DisputeStatusRejected:
		buyerMessage = "Your dispute was reviewed and rejected."
	default:
		buyerMessage = "Your dispute status changed."
	}

	s.Notify(dispute.RaisedBy, "dispute_updated", "Dispute update", buyerMessage, "dispute", &dispute.ID)

	var beat models.Beat
	if err := s.db.Select("producer_id").First(&beat, "id = ?", dispute.Purchase.BeatID).Error; err == nil {
		s.Notify(beat.ProducerID, "dispute_updated", "Dispute update",
			fmt.Sprintf("A dispute on one of your sales moved to %s.", dispute.Status),
			"dispute", &dispute.ID)
	}
}

func (s *NotificationService) PurchaseRefunded(purchase *models.Purchase) {
	s.Notify(purchase.BuyerID, "purchase_refunded", "Refund issued",
		fmt.Sprintf("Your purchase of %q has been refunded.", purchase.Beat.Title),
		"purchase", &purchase.ID)
	s.Notify(purchase.Beat.ProducerID, "purchase_refunded", "Sale refunded",
		fmt.Sprintf("The disputed sale of %q was refunded to the buyer.", purchase.Beat.Title),
		"purchase", &purchase.ID)
}

func (s *NotificationService) WithdrawalRequested(withdrawal *models.Withdrawal) {
	s.Notify(withdrawal.ProducerID, "withdrawal_requested", "Withdrawal requested",
		fmt.Sprintf("Your withdrawal of $%.2f to %s is being processed.", withdrawal.Amount, withdrawal.PayPalEmail),
		"withdrawal", &withdrawal.ID)
}

func (s *NotificationService) WithdrawalUpdated(withdrawal *models.Withdrawal, status models.WithdrawalStatus) {
	var message string
	switch status {
	case models.WithdrawalStatusPaid:
		message = fmt.Sprintf("Your withdrawal of $%.2f has been paid out.", withdrawal.Amount)
	case models.WithdrawalStatusBlocked:
		message = fmt.Sprintf("Your withdrawal of $%.2f was blocked pending review.", withdrawal.Amount)
	case models.WithdrawalStatusCancelled:
		message = fmt.Sprintf("Your withdrawal of $%.2f was cancelled and returned to your wallet.", withdrawal.Amount)
	default:
		message = "Your withdrawal status changed."
	}
	s.Notify(withdrawal.ProducerID, "withdrawal_updated", "Withdrawal update", message, "withdrawal", &withdrawal.ID)
}

func (s *NotificationService) UserNotifications(userID uuid.UUID, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at"})
	query = utils.ApplyPagination(query, params)

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}
