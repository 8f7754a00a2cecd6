package transaction

import (
	"time"

	"tokenledger-backend/internal/models"
)

type TransactionListItem struct {
	ID            uint                        `json:"id"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UserID        string                      `json:"userId"`
	Amount        int64                       `json:"amount"`
	BalanceBefore int64                       `json:"balanceBefore"`
	BalanceAfter  int64                       `json:"balanceAfter"`
	Description   string                      `json:"description"`
	Type          models.TokenTransactionType `json:"type"`
	Metadata      map[string]interface{}      `json:"metadata,omitempty"`
	Hash          string                      `json:"hash"`
	Verified      bool                        `json:"verified"`
}

type TransactionListResponse struct {
	Transactions []TransactionListItem `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}
