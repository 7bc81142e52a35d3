// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
	disputeService  *services.DisputeService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService, disputeService *services.DisputeService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		disputeService:  disputeService,
	}
}

// POST /buyer/purchase
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	purchase, breakdown, err := h.purchaseService.Purchase(buyerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"purchase":  purchase,
		"breakdown": breakdown,
	})
}

// GET /buyer/purchases/:id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchaseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(purchaseID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if purchase.BuyerID != buyerID {
		handleServiceError(c, services.ErrNotPurchaseOwner)
		return
	}

	utils.SuccessResponse(c, purchase)
}

// GET /buyer/purchases
func (h *PurchaseHandler) BuyerPurchases(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	purchases, total, err := h.purchaseService.BuyerPurchases(buyerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /producer/sales
func (h *PurchaseHandler) ProducerSales(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	sales, total, err := h.purchaseService.ProducerSales(producerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(sales, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /buyer/purchases/:id/dispute
func (h *PurchaseHandler) FileDispute(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchaseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.FileDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	dispute, err := h.disputeService.FileDispute(buyerID, purchaseID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, dispute)
}
