package payment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tokenledger-backend/internal/api/v1/common"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

type Recorder interface {
	RecordPayment(ctx context.Context, userID string, tokens int64, reference string) (*services.PaymentResult, error)
}

type Handler struct {
	recorder Recorder
}

func NewHandler(recorder Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// RecordPayment godoc
// @Summary Credit a confirmed payment
// @Description Credit tokens for a payment confirmed upstream. Replaying a reference is acknowledged with applied=false.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body RecordPaymentRequest true "Payment"
// @Success 200 {object} utils.Response{data=RecordPaymentResponse}
// @Success 201 {object} utils.Response{data=RecordPaymentResponse}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/payments [post]
func (h *Handler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.recorder.RecordPayment(c.Request.Context(), req.UserID, req.Tokens, req.Reference)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	resp := RecordPaymentResponse{Applied: result.Applied, Balance: result.Balance}
	if !result.Applied {
		c.JSON(http.StatusOK, utils.NewSuccessResponse("Payment already recorded", resp))
		return
	}
	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Payment recorded", resp))
}
