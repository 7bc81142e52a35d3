// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type AdminHandler struct {
	adminService      *services.AdminService
	beatService       *services.BeatService
	purchaseService   *services.PurchaseService
	disputeService    *services.DisputeService
	withdrawalService *services.WithdrawalService
}

func NewAdminHandler(
	adminService *services.AdminService,
	beatService *services.BeatService,
	purchaseService *services.PurchaseService,
	disputeService *services.DisputeService,
	withdrawalService *services.WithdrawalService,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		beatService:       beatService,
		purchaseService:   purchaseService,
		disputeService:    disputeService,
		withdrawalService: withdrawalService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var role *models.UserRole
	if r := c.Query("role"); r != "" {
		parsed := models.UserRole(r)
		role = &parsed
	}

	users, total, err := h.adminService.ListUsers(role, params.Page, params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// PATCH /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req struct {
		Status models.UserStatus `json:"status" binding:"required,oneof=active suspended banned"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	user, err := h.adminService.UpdateUserStatus(c.Param("id"), req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// PATCH /admin/beats/:id
func (h *AdminHandler) ModerateBeat(c *gin.Context) {
	beatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.ModerateBeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	beat, err := h.beatService.ModerateBeat(beatID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, beat)
}

// GET /admin/purchases
func (h *AdminHandler) GetPurchases(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	purchases, total, err := h.purchaseService.AllPurchases(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /admin/disputes
func (h *AdminHandler) GetDisputes(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var status *models.DisputeStatus
	if s := c.Query("status"); s != "" {
		parsed := models.DisputeStatus(s)
		status = &parsed
	}

	disputes, total, err := h.disputeService.ListDisputes(status, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(disputes, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /admin/disputes/:id
func (h *AdminHandler) GetDispute(c *gin.Context) {
	disputeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.GetDispute(disputeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, dispute)
}

// PATCH /admin/disputes/:id
func (h *AdminHandler) UpdateDispute(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	disputeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	dispute, err := h.disputeService.UpdateDispute(disputeID, adminID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, dispute)
}

// POST /admin/purchases/:id/refund
func (h *AdminHandler) RefundPurchase(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchaseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	purchase, err := h.disputeService.RefundPurchase(purchaseID, adminID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, purchase)
}

// GET /admin/withdrawals
func (h *AdminHandler) GetWithdrawals(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var status *models.WithdrawalStatus
	if s := c.Query("status"); s != "" {
		parsed := models.WithdrawalStatus(s)
		status = &parsed
	}

	withdrawals, total, err := h.withdrawalService.AllWithdrawals(status, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(withdrawals, total, params)
	utils.PaginatedResponse(c, result)
}

// PATCH /admin/withdrawals/:id
func (h *AdminHandler) UpdateWithdrawal(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	withdrawalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.UpdateWithdrawal(withdrawalID, adminID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, withdrawal)
}
