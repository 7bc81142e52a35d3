// internal/handlers/beat.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type BeatHandler struct {
	beatService *services.BeatService
}

func NewBeatHandler(beatService *services.BeatService) *BeatHandler {
	return &BeatHandler{
		beatService: beatService,
	}
}

// GET /beats
func (h *BeatHandler) ListBeats(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	beats, total, err := h.beatService.ListBeats(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(beats, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /beats/:id
func (h *BeatHandler) GetBeat(c *gin.Context) {
	beatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	beat, err := h.beatService.GetBeat(beatID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, beat)
}

// GET /licenses
func (h *BeatHandler) ListLicenses(c *gin.Context) {
	licenses, err := h.beatService.ListLicenses()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"licenses": licenses})
}

// POST /producer/beats
func (h *BeatHandler) CreateBeat(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateBeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	beat, err := h.beatService.CreateBeat(producerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, beat)
}

// POST /producer/beats/:id/licenses
func (h *BeatHandler) AttachLicense(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	beatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.AttachLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	beatLicense, err := h.beatService.AttachLicense(producerID, beatID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, beatLicense)
}

// DELETE /producer/beats/:id/licenses/:licenseId
func (h *BeatHandler) DetachLicense(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	beatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	licenseID, ok := pathUUID(c, "licenseId")
	if !ok {
		return
	}

	if err := h.beatService.DetachLicense(producerID, beatID, licenseID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"detached": true})
}

// GET /producer/beats
func (h *BeatHandler) ProducerBeats(c *gin.Context) {
	producerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	beats, total, err := h.beatService.ProducerBeats(producerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(beats, total, params)
	utils.PaginatedResponse(c, result)
}
