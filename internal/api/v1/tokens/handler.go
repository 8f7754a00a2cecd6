package tokens

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tokenledger-backend/internal/api/v1/common"
	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

// Ledger is the part of services.LedgerService the public token routes use.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (*models.TokenBalance, error)
	CheckSufficiency(ctx context.Context, userID string, required int64) (*services.Sufficiency, error)
	Consume(ctx context.Context, userID string, amount int64, description string) (*models.TokenBalance, error)
	Adjust(ctx context.Context, userID string, estimated, actual int64, description string) (*services.AdjustResult, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error)
}

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Estimate godoc
// @Summary Estimate token cost
// @Description Approximate the token cost of a generation request from its prompt.
// @Tags tokens
// @Accept json
// @Produce json
// @Param input body EstimateRequest true "Prompt"
// @Success 200 {object} utils.Response{data=EstimateResponse}
// @Failure 400 {object} utils.Response
// @Router /tokens/estimate [post]
func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Cost estimated", EstimateResponse{
		EstimatedTokens: services.EstimateCost(req.Prompt),
	}))
}

// Check godoc
// @Summary Check balance sufficiency
// @Description Report whether the user can afford requiredTokens. Responds 402 when not.
// @Tags tokens
// @Accept json
// @Produce json
// @Param input body CheckRequest true "Check input"
// @Success 200 {object} utils.Response{data=services.Sufficiency}
// @Failure 400 {object} utils.Response
// @Failure 402 {object} utils.Response{data=services.Sufficiency}
// @Failure 404 {object} utils.Response
// @Router /tokens/check [post]
func (h *Handler) Check(c *gin.Context) {
	var req CheckRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.ledger.CheckSufficiency(c.Request.Context(), req.UserID, req.RequiredTokens)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	if !result.Sufficient {
		c.JSON(http.StatusPaymentRequired, utils.NewResponse(http.StatusPaymentRequired, "Insufficient tokens", result))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Balance is sufficient", result))
}

// Consume godoc
// @Summary Consume tokens
// @Description Deduct amount from the user's balance. Responds 402 with consumed=false when the balance is too low.
// @Tags tokens
// @Accept json
// @Produce json
// @Param input body ConsumeRequest true "Consume input"
// @Success 200 {object} utils.Response{data=ConsumeResponse}
// @Failure 400 {object} utils.Response
// @Failure 402 {object} utils.Response{data=ConsumeResponse}
// @Failure 409 {object} utils.Response
// @Failure 503 {object} utils.Response
// @Router /tokens/consume [post]
func (h *Handler) Consume(c *gin.Context) {
	var req ConsumeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	balance, err := h.ledger.Consume(c.Request.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		var insufficient *services.InsufficientTokensError
		if errors.As(err, &insufficient) {
			common.RespondLedgerError(c, err, ConsumeResponse{
				Consumed:         false,
				RemainingBalance: insufficient.Balance,
				RequiredTokens:   insufficient.Required,
			})
			return
		}
		common.RespondLedgerError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Tokens consumed", ConsumeResponse{
		Consumed:         true,
		RemainingBalance: balance.Tokens,
	}))
}

// Adjust godoc
// @Summary Reconcile an estimate
// @Description Charge or refund the difference between the estimated and actual cost.
// @Tags tokens
// @Accept json
// @Produce json
// @Param input body AdjustRequest true "Adjust input"
// @Success 200 {object} utils.Response{data=AdjustResponse}
// @Failure 400 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /tokens/adjust [post]
func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.ledger.Adjust(c.Request.Context(), req.UserID, *req.EstimatedTokens, *req.ActualTokens, req.Description)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Tokens adjusted", AdjustResponse{
		Adjusted:       result.Adjusted,
		NewBalance:     result.Balance.Tokens,
		TokensAdjusted: result.TokensAdjusted,
		AdjustmentType: result.AdjustmentType,
		Shortfall:      result.Shortfall,
	}))
}

// Balance godoc
// @Summary Get balance and recent transactions
// @Tags tokens
// @Produce json
// @Param userId query string true "User ID"
// @Param limit query int false "Number of transactions" default(20)
// @Success 200 {object} utils.Response{data=BalanceResponse}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /tokens/balance [get]
func (h *Handler) Balance(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "userId is required"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	ctx := c.Request.Context()
	balance, err := h.ledger.GetBalance(ctx, userID)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	entries, err := h.ledger.ListTransactions(ctx, userID, limit)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Balance retrieved successfully", BalanceResponse{
		Balance:            balance,
		RecentTransactions: entries,
	}))
}
