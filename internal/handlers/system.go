// internal/handlers/system.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type SystemHandler struct {
	releaseService *services.ReleaseService
}

func NewSystemHandler(releaseService *services.ReleaseService) *SystemHandler {
	return &SystemHandler{
		releaseService: releaseService,
	}
}

// POST /system/release-funds
func (h *SystemHandler) ReleaseFunds(c *gin.Context) {
	summary, err := h.releaseService.ReleaseDueFunds(time.Now())
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /system/pending-releases
func (h *SystemHandler) PendingReleases(c *gin.Context) {
	purchases, err := h.releaseService.PendingReleases(time.Now())
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"count":     len(purchases),
		"purchases": purchases,
	})
}
