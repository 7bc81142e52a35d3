// internal/services/purchase_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/currency"
	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

var (
	ErrBeatNotFound      = errors.New("beat not found")
	ErrBeatUnavailable   = errors.New("beat is no longer available for purchase")
	ErrDuplicatePurchase = errors.New("you already own this license for this beat")
	ErrLicenseNotOffered = errors.New("this license is not offered for this beat")
	ErrBuyerInactive     = errors.New("buyer account is not active")
)

type PurchaseService struct {
	db            *gorm.DB
	wallet        *WalletService
	payments      *PaymentService
	notifications *NotificationService
	cfg           *config.Config
}

type PurchaseRequest struct {
	BeatID           uuid.UUID `json:"beat_id" validate:"required"`
	LicenseID        uuid.UUID `json:"license_id" validate:"required"`
	PaymentMethodID  string    `json:"payment_method_id,omitempty"`
	UseWallet        bool      `json:"use_wallet,omitempty"`
	Currency         string    `json:"currency,omitempty" validate:"currency"`
	PreferredGateway string    `json:"preferred_gateway,omitempty"`
}

// PaymentBreakdown is returned alongside the purchase so the client can
// show how the price was covered.
type PaymentBreakdown struct {
	Price            float64   `json:"price"`
	Commission       float64   `json:"commission"`
	SellerEarnings   float64   `json:"seller_earnings"`
	WalletAmount     float64   `json:"wallet_amount"`
	CardAmount       float64   `json:"card_amount"`
	Gateway          string    `json:"gateway,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	HoldUntil        time.Time `json:"hold_until"`
}

func NewPurchaseService(db *gorm.DB, wallet *WalletService, payments *PaymentService, notifications *NotificationService, cfg *config.Config) *PurchaseService {
	return &PurchaseService{
		db:            db,
		wallet:        wallet,
		payments:      payments,
		notifications: notifications,
		cfg:           cfg,
	}
}

// Purchase runs the whole buy sequence in one database transaction:
// validate, split wallet/card payment, insert the held purchase row, and
// delist the beat on an exclusive sale. A payment failure rolls back any
// wallet debit, and a rollback after payment never leaves a purchase row.
func (s *PurchaseService) Purchase(buyerID uuid.UUID, req *PurchaseRequest) (*models.Purchase, *PaymentBreakdown, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	var (
		purchase  *models.Purchase
		breakdown *PaymentBreakdown
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var buyer models.User
		if err := tx.First(&buyer, "id = ?", buyerID).Error; err != nil {
			return fmt.Errorf("buyer not found: %w", err)
		}
		if buyer.Status != models.UserStatusActive {
			return ErrBuyerInactive
		}

		var beat models.Beat
		if err := tx.First(&beat, "id = ?", req.BeatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBeatNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Step 1: duplicate (buyer, beat, license) purchase
		var duplicates int64
		if err := tx.Model(&models.Purchase{}).
			Where("buyer_id = ? AND beat_id = ? AND license_id = ?", buyerID, req.BeatID, req.LicenseID).
			Count(&duplicates).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if duplicates > 0 {
			return ErrDuplicatePurchase
		}

		// Step 2: a prior exclusive sale removes the beat for good, even
		// if moderation later re-enabled it
		var exclusiveSales int64
		if err := tx.Model(&models.Purchase{}).
			Joins("JOIN licenses ON licenses.id = purchases.license_id").
			Where("purchases.beat_id = ? AND licenses.name = ?", req.BeatID, models.LicenseNameExclusive).
			Count(&exclusiveSales).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if exclusiveSales > 0 {
			return ErrBeatUnavailable
		}

		// Step 3: beat must be enabled and active
		if beat.Status != models.BeatStatusEnabled || !beat.IsActive {
			return ErrBeatUnavailable
		}

		// Step 4: the beat must offer the requested license
		var beatLicense models.BeatLicense
		if err := tx.Preload("License").
			Where("beat_id = ? AND license_id = ?", req.BeatID, req.LicenseID).
			First(&beatLicense).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotOffered
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Step 5: commission split
		price := currency.RoundCents(beatLicense.Price)
		commission := currency.RoundCents(price * s.cfg.Payment.CommissionRate)
		sellerEarnings := currency.RoundCents(price - commission)

		// Step 6: wallet/card split, wallet first
		walletAmount := 0.0
		if req.UseWallet {
			balance := currency.RoundCents(buyer.WalletBalance)
			walletAmount = balance
			if walletAmount > price {
				walletAmount = price
			}
		}
		cardAmount := currency.RoundCents(price - walletAmount)

		var walletTxnID *uuid.UUID
		if walletAmount > 0 {
			op, err := s.wallet.DebitTx(tx, buyerID, walletAmount, "USD",
				fmt.Sprintf("Purchase of beat %q (%s license)", beat.Title, beatLicense.License.Name),
				"purchase", nil)
			if err != nil {
				return err
			}
			walletTxnID = &op.TransactionID
		}

		// The card portion is charged in the buyer's currency; prices and
		// the wallet stay in USD.
		chargeCurrency := currency.Normalize(req.Currency)
		if chargeCurrency == "" {
			chargeCurrency = "USD"
		}

		gatewayName := ""
		paymentReference := ""
		if cardAmount > 0 {
			chargeAmount, err := currency.FromUSD(cardAmount, chargeCurrency)
			if err != nil {
				return err
			}

			result, err := s.payments.ProcessPayment(&PaymentRequest{
				Amount:           chargeAmount,
				Currency:         chargeCurrency,
				PaymentMethodID:  req.PaymentMethodID,
				PreferredGateway: req.PreferredGateway,
				Description:      fmt.Sprintf("Beat license purchase: %s", beat.Title),
			})
			if err != nil {
				return err
			}
			gatewayName = result.Gateway
			paymentReference = result.TransactionID
		}

		// Step 7: held purchase row
		now := time.Now()
		purchase = &models.Purchase{
			BuyerID:          buyerID,
			BeatID:           req.BeatID,
			LicenseID:        req.LicenseID,
			Price:            price,
			Commission:       commission,
			SellerEarnings:   sellerEarnings,
			WalletAmount:     walletAmount,
			CardAmount:       cardAmount,
			Currency:         chargeCurrency,
			Gateway:          gatewayName,
			PaymentReference: paymentReference,
			PayoutStatus:     models.PayoutStatusUnpaid,
			RefundStatus:     models.RefundStatusNone,
			HoldUntil:        now.Add(time.Duration(s.cfg.Payment.HoldDays) * 24 * time.Hour),
		}

		if err := tx.Create(purchase).Error; err != nil {
			// Unique index (buyer_id, beat_id, license_id) closes the
			// check-then-insert race with a concurrent duplicate.
			if isUniqueViolation(err) {
				return ErrDuplicatePurchase
			}
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		if walletTxnID != nil {
			if err := tx.Model(&models.WalletTransaction{}).
				Where("id = ?", *walletTxnID).
				Updates(map[string]interface{}{
					"reference_type": "purchase",
					"reference_id":   purchase.ID,
				}).Error; err != nil {
				return fmt.Errorf("failed to tag wallet transaction: %w", err)
			}
		}

		if err := tx.Model(&models.Beat{}).
			Where("id = ?", req.BeatID).
			UpdateColumn("sales_count", gorm.Expr("sales_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to update sales count: %w", err)
		}

		// Step 8: exclusive sale delists the beat permanently. The guarded
		// update serializes concurrent exclusive buys: the loser sees zero
		// rows affected and rolls back, wallet debit included.
		if beatLicense.License.IsExclusive() {
			result := tx.Model(&models.Beat{}).
				Where("id = ? AND status = ? AND is_active = ?", req.BeatID, models.BeatStatusEnabled, true).
				Updates(map[string]interface{}{
					"status":    models.BeatStatusDisabled,
					"is_active": false,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to delist beat: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrBeatUnavailable
			}
		}

		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	if err := s.db.Preload("Beat").Preload("License").First(purchase, "id = ?", purchase.ID).Error; err != nil {
		logrus.WithError(err).Warn("Failed to reload purchase after commit")
	}

	breakdown = &PaymentBreakdown{
		Price:            purchase.Price,
		Commission:       purchase.Commission,
		SellerEarnings:   purchase.SellerEarnings,
		WalletAmount:     purchase.WalletAmount,
		CardAmount:       purchase.CardAmount,
		Gateway:          purchase.Gateway,
		PaymentReference: purchase.PaymentReference,
		HoldUntil:        purchase.HoldUntil,
	}

	purchasesTotal.WithLabelValues(purchase.License.Name).Inc()
	purchaseVolumeUSD.Add(purchase.Price)

	s.notifications.PurchaseConfirmation(purchase)
	s.notifications.SaleNotification(purchase)

	return purchase, breakdown, nil
}

func (s *PurchaseService) GetPurchase(purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.Preload("Beat").Preload("License").First(&purchase, "id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &purchase, nil
}

func (s *PurchaseService) BuyerPurchases(buyerID uuid.UUID, params utils.PaginationParams) ([]models.Purchase, int64, error) {
	query := s.db.Model(&models.Purchase{}).Where("buyer_id = ?", buyerID).
		Preload("Beat").Preload("License")
	return s.listPurchases(query, params)
}

// ProducerSales lists purchases of the producer's beats.
func (s *PurchaseService) ProducerSales(producerID uuid.UUID, params utils.PaginationParams) ([]models.Purchase, int64, error) {
	query := s.db.Model(&models.Purchase{}).
		Joins("JOIN beats ON beats.id = purchases.beat_id").
		Where("beats.producer_id = ?", producerID).
		Preload("Beat").Preload("License")
	return s.listPurchases(query, params)
}

func (s *PurchaseService) AllPurchases(params utils.PaginationParams) ([]models.Purchase, int64, error) {
	query := s.db.Model(&models.Purchase{}).Preload("Beat").Preload("License").Preload("Buyer")
	return s.listPurchases(query, params)
}

func (s *PurchaseService) listPurchases(query *gorm.DB, params utils.PaginationParams) ([]models.Purchase, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	// Qualified: ProducerSales joins beats, which has its own created_at.
	allowedSortFields := []string{"purchases.created_at", "purchases.price", "purchases.hold_until", "purchases.payout_status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var purchases []models.Purchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
