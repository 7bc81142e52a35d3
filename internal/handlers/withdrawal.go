// internal/handlers/withdrawal.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type WithdrawalHandler struct {
	withdrawalService *services.WithdrawalService
}

func NewWithdrawalHandler(withdrawalService *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

// POST /producer/withdrawals
func (h *WithdrawalHandler) RequestWithdrawal(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.RequestWithdrawal(producerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, withdrawal)
}

// GET /producer/withdrawals
func (h *WithdrawalHandler) ProducerWithdrawals(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	withdrawals, total, err := h.withdrawalService.ProducerWithdrawals(producerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(withdrawals, total, params)
	utils.PaginatedResponse(c, result)
}
