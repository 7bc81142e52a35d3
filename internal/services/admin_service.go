// internal/services/admin_service.go
package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/models"
)

type AdminService struct {
	db *gorm.DB
}

type DashboardStats struct {
	TotalUsers      int64   `json:"total_users"`
	TotalProducers  int64   `json:"total_producers"`
	TotalBeats      int64   `json:"total_beats"`
	ActiveBeats     int64   `json:"active_beats"`
	TotalPurchases  int64   `json:"total_purchases"`
	SalesVolume     float64 `json:"sales_volume"`
	CommissionTotal float64 `json:"commission_total"`
	HeldFunds       float64 `json:"held_funds"`
	ReleasedFunds   float64 `json:"released_funds"`
	OpenDisputes    int64   `json:"open_disputes"`
	PendingPayouts  int64   `json:"pending_payouts"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	s.db.Model(&models.User{}).Where("role = ?", models.UserRoleProducer).Count(&stats.TotalProducers)

	s.db.Model(&models.Beat{}).Count(&stats.TotalBeats)
	s.db.Model(&models.Beat{}).
		Where("status = ? AND is_active = ?", models.BeatStatusEnabled, true).
		Count(&stats.ActiveBeats)

	s.db.Model(&models.Purchase{}).Count(&stats.TotalPurchases)
	s.db.Model(&models.Purchase{}).
		Select("COALESCE(SUM(price), 0)").Row().Scan(&stats.SalesVolume)
	s.db.Model(&models.Purchase{}).
		Select("COALESCE(SUM(commission), 0)").
		Where("refund_status != ?", models.RefundStatusRefunded).
		Row().Scan(&stats.CommissionTotal)

	// Held: earnings still waiting out the hold period. Released: paid out
	// to producer wallets.
	s.db.Model(&models.Purchase{}).
		Select("COALESCE(SUM(seller_earnings), 0)").
		Where("payout_status = ? AND refund_status = ?", models.PayoutStatusUnpaid, models.RefundStatusNone).
		Row().Scan(&stats.HeldFunds)
	s.db.Model(&models.Purchase{}).
		Select("COALESCE(SUM(seller_earnings), 0)").
		Where("payout_status = ?", models.PayoutStatusPaid).
		Row().Scan(&stats.ReleasedFunds)

	s.db.Model(&models.Dispute{}).
		Where("status IN ?", []models.DisputeStatus{models.DisputeStatusOpen, models.DisputeStatusUnderReview}).
		Count(&stats.OpenDisputes)
	s.db.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusUnpaid).
		Count(&stats.PendingPayouts)

	return stats, nil
}

// ListUsers is a paged admin view, newest first.
func (s *AdminService) ListUsers(role *models.UserRole, page, limit int) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if role != nil {
		query = query.Where("role = ?", *role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) UpdateUserStatus(userID string, status models.UserStatus) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	return &user, nil
}
