package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tokenledger-backend/internal/api/v1/common"
	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/store"
	"tokenledger-backend/internal/utils"
)

const (
	maxPageSize  = 100
	exportLimit  = 10000
	defaultLimit = "20"
)

type Finder interface {
	FindTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.TokenTransaction, int64, error)
}

type Handler struct {
	finder     Finder
	hashSecret string
}

func NewHandler(finder Finder, hashSecret string) *Handler {
	return &Handler{finder: finder, hashSecret: hashSecret}
}

// ListTransactions godoc
// @Summary List transactions
// @Description Get a paginated list of ledger transactions with filtering. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param userId query string false "Filter by user ID"
// @Param type query string false "Filter by transaction type"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Param minAmount query int false "Filter by minimum signed amount"
// @Param maxAmount query int false "Filter by maximum signed amount"
// @Success 200 {object} utils.Response{data=TransactionListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", defaultLimit))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}
	filter.Page = page
	filter.Limit = limit

	transactions, total, err := h.finder.FindTransactions(c.Request.Context(), filter)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	items := make([]TransactionListItem, 0, len(transactions))
	for _, t := range transactions {
		item := TransactionListItem{
			ID:            t.ID,
			CreatedAt:     t.CreatedAt,
			UserID:        t.UserID,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Description:   t.Description,
			Type:          t.Type,
			Hash:          t.Hash,
			Verified:      t.VerifyHash(h.hashSecret),
		}
		if len(t.Metadata) > 0 {
			_ = json.Unmarshal(t.Metadata, &item.Metadata)
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}))
}

// ExportTransactions godoc
// @Summary Export transactions
// @Description Export matching ledger transactions to CSV, newest first, at most 10000 rows. Admin only.
// @Tags admin
// @Produce text/csv
// @Security Bearer
// @Param userId query string false "Filter by user ID"
// @Param type query string false "Filter by transaction type"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {string} string "CSV content"
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions/export [get]
func (h *Handler) ExportTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}
	filter.Page = 1
	filter.Limit = exportLimit

	transactions, _, err := h.finder.FindTransactions(c.Request.Context(), filter)
	if err != nil {
		common.RespondLedgerError(c, err, nil)
		return
	}

	csvContent, err := services.GenerateTransactionCSV(transactions, h.hashSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvContent)
}

func parseFilter(c *gin.Context) (store.TransactionFilter, error) {
	var filter store.TransactionFilter

	if userID, exists := c.GetQuery("userId"); exists && userID != "" {
		filter.UserID = &userID
	}

	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TokenTransactionType(typeStr)
		switch t {
		case models.TokenTransactionConsume, models.TokenTransactionAdditionalCharge,
			models.TokenTransactionRefund, models.TokenTransactionPayment:
			filter.Type = &t
		default:
			return filter, fmt.Errorf("invalid type %q", typeStr)
		}
	}

	if startTimeStr, exists := c.GetQuery("startTime"); exists {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			return filter, errors.New("invalid startTime format")
		}
		filter.StartTime = &startTime
	}

	if endTimeStr, exists := c.GetQuery("endTime"); exists {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			return filter, errors.New("invalid endTime format")
		}
		filter.EndTime = &endTime
	}

	if minAmountStr, exists := c.GetQuery("minAmount"); exists {
		minAmount, err := strconv.ParseInt(minAmountStr, 10, 64)
		if err != nil {
			return filter, errors.New("invalid minAmount")
		}
		filter.MinAmount = &minAmount
	}

	if maxAmountStr, exists := c.GetQuery("maxAmount"); exists {
		maxAmount, err := strconv.ParseInt(maxAmountStr, 10, 64)
		if err != nil {
			return filter, errors.New("invalid maxAmount")
		}
		filter.MaxAmount = &maxAmount
	}

	return filter, nil
}
