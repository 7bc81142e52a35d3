// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	response, err := h.authService.Register(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, response)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// GET /auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// currentUserID pulls the authenticated user out of the request context.
// It writes the error response itself, so callers just return on !ok.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}

// pathUUID parses a path parameter as a UUID, writing the error response
// on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
