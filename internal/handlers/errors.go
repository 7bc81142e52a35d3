// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/beatmarket/beatmarket-backend/internal/currency"
	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

// handleServiceError maps service-layer errors onto HTTP responses so
// every handler reports the same shape for the same failure.
func handleServiceError(c *gin.Context, err error) {
	var (
		insufficientBalance *services.InsufficientBalanceError
		unsupportedCurrency *currency.UnsupportedCurrencyError
		validationErrs      validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErrs):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))

	case errors.As(err, &insufficientBalance):
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE",
			insufficientBalance.Error(), gin.H{
				"available": insufficientBalance.Available,
				"required":  insufficientBalance.Required,
			})

	case errors.As(err, &unsupportedCurrency):
		utils.ErrorResponse(c, http.StatusBadRequest, "UNSUPPORTED_CURRENCY",
			unsupportedCurrency.Error(), nil)

	case errors.Is(err, services.ErrBeatNotFound),
		errors.Is(err, services.ErrLicenseNotFound),
		errors.Is(err, services.ErrPurchaseNotFound),
		errors.Is(err, services.ErrDisputeNotFound),
		errors.Is(err, services.ErrWithdrawalNotFound),
		errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "Resource")

	case errors.Is(err, services.ErrDuplicatePurchase),
		errors.Is(err, services.ErrAlreadyDisputed),
		errors.Is(err, services.ErrAlreadyRefunded),
		errors.Is(err, services.ErrAlreadyWithdrawn),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken):
		utils.ConflictResponse(c, err.Error())

	case errors.Is(err, services.ErrNotPurchaseOwner),
		errors.Is(err, services.ErrNotBeatOwner),
		errors.Is(err, services.ErrAccountSuspended),
		errors.Is(err, services.ErrBuyerInactive):
		utils.ForbiddenResponse(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, err.Error())

	case errors.Is(err, services.ErrBeatUnavailable),
		errors.Is(err, services.ErrBeatExclusivelySold),
		errors.Is(err, services.ErrLicenseNotOffered),
		errors.Is(err, services.ErrUnsupportedCurrency),
		errors.Is(err, services.ErrUnknownGateway),
		errors.Is(err, services.ErrChargeDeclined),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDisputeNotResolved),
		errors.Is(err, services.ErrPurchaseNotDisputed),
		errors.Is(err, services.ErrBelowMinimumPayout),
		errors.Is(err, services.ErrWithdrawalNotPending):
		utils.BadRequestResponse(c, err.Error(), nil)

	default:
		logrus.WithError(err).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}
