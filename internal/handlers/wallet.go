// internal/handlers/wallet.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type WalletHandler struct {
	walletService       *services.WalletService
	notificationService *services.NotificationService
}

func NewWalletHandler(walletService *services.WalletService, notificationService *services.NotificationService) *WalletHandler {
	return &WalletHandler{
		walletService:       walletService,
		notificationService: notificationService,
	}
}

// GET /wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	balance, err := h.walletService.Balance(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"balance":  balance,
		"currency": "USD",
	})
}

// GET /wallet/transactions
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	transactions, total, err := h.walletService.Transactions(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /notifications
func (h *WalletHandler) GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.UserNotifications(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	utils.PaginatedResponse(c, result)
}
