package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

// StatusForLedgerError maps ledger errors onto HTTP status codes.
func StatusForLedgerError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTransientConflict), errors.Is(err, services.ErrResetInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondLedgerError writes err in the response envelope. Storage and
// internal failures are reported generically; details stay in the logs.
func RespondLedgerError(c *gin.Context, err error, data interface{}) {
	status := StatusForLedgerError(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "Internal server error"
	case http.StatusServiceUnavailable:
		message = "Storage temporarily unavailable, please retry"
	}
	c.JSON(status, utils.NewResponse(status, message, data))
}
