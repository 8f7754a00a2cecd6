package tokens

import (
	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/services"
)

type EstimateRequest struct {
	Prompt string `json:"prompt"`
}

type EstimateResponse struct {
	EstimatedTokens int64 `json:"estimatedTokens"`
}

type CheckRequest struct {
	UserID         string `json:"userId" binding:"required,max=128"`
	RequiredTokens int64  `json:"requiredTokens" binding:"gt=0"`
}

type ConsumeRequest struct {
	UserID      string `json:"userId" binding:"required,max=128"`
	Amount      int64  `json:"amount" binding:"gt=0"`
	Description string `json:"description" binding:"max=500"`
}

type ConsumeResponse struct {
	Consumed         bool  `json:"consumed"`
	RemainingBalance int64 `json:"remainingBalance"`
	RequiredTokens   int64 `json:"requiredTokens,omitempty"`
}

// AdjustRequest uses pointers so an explicit 0 is accepted while a missing field is not.
type AdjustRequest struct {
	UserID          string `json:"userId" binding:"required,max=128"`
	EstimatedTokens *int64 `json:"estimatedTokens" binding:"required,gte=0"`
	ActualTokens    *int64 `json:"actualTokens" binding:"required,gte=0"`
	Description     string `json:"description" binding:"max=500"`
}

type AdjustResponse struct {
	Adjusted       bool                    `json:"adjusted"`
	NewBalance     int64                   `json:"newBalance"`
	TokensAdjusted int64                   `json:"tokensAdjusted"`
	AdjustmentType services.AdjustmentType `json:"adjustmentType"`
	Shortfall      int64                   `json:"shortfall,omitempty"`
}

type BalanceResponse struct {
	Balance            *models.TokenBalance      `json:"balance"`
	RecentTransactions []models.TokenTransaction `json:"recentTransactions"`
}
