package payment

import "tokenledger-backend/internal/models"

type RecordPaymentRequest struct {
	UserID    string `json:"userId" binding:"required,max=128"`
	Tokens    int64  `json:"tokens" binding:"gt=0"`
	Reference string `json:"reference" binding:"required,max=128"`
}

type RecordPaymentResponse struct {
	Applied bool                 `json:"applied"`
	Balance *models.TokenBalance `json:"balance"`
}
