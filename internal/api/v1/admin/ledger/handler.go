package ledger

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"tokenledger-backend/internal/api/v1/common"
	"tokenledger-backend/internal/middleware"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

type Resetter interface {
	ResetAll(ctx context.Context) (*services.ResetSummary, error)
}

type Handler struct {
	resetter Resetter
	log      *zap.Logger
}

func NewHandler(resetter Resetter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{resetter: resetter, log: log}
}

// Reset godoc
// @Summary Reset the ledger
// @Description Zero every balance and delete all transactions. Safe to re-run after a partial failure.
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=services.ResetSummary}
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response{data=services.ResetSummary}
// @Router /admin/ledger/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	summary, err := h.resetter.ResetAll(c.Request.Context())
	if err != nil {
		// partial progress is still reported so the operator knows what was done
		h.log.Error("ledger reset failed", zap.Error(err), zap.Any("progress", summary))
		common.RespondLedgerError(c, err, summary)
		return
	}

	h.log.Warn("ledger reset by admin", zap.Any("sub", claimSubject(c)), zap.Any("summary", summary))
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Ledger reset completed", summary))
}

func claimSubject(c *gin.Context) interface{} {
	if claims, ok := c.Get(middleware.ContextKeyClaims); ok {
		if m, ok := claims.(jwt.MapClaims); ok {
			return m["sub"]
		}
	}
	return nil
}
