package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TokenTransactionType string

const (
	TokenTransactionConsume          TokenTransactionType = "consume"
	TokenTransactionAdditionalCharge TokenTransactionType = "additional_charge"
	TokenTransactionRefund           TokenTransactionType = "refund"
	TokenTransactionPayment          TokenTransactionType = "payment"
)

// TokenTransaction is an append-only ledger entry. Amount is the signed delta
// applied to the balance: negative for debits, positive for credits.
type TokenTransaction struct {
	ID            uint                 `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time            `gorm:"precision:3;index" json:"createdAt"`
	UserID        string               `gorm:"index;type:varchar(128);not null" json:"userId"`
	Amount        int64                `gorm:"not null" json:"amount"`
	Type          TokenTransactionType `gorm:"type:varchar(32);index;not null" json:"type"`
	Description   string               `gorm:"type:text" json:"description"`
	BalanceBefore int64                `gorm:"not null" json:"balanceBefore"`
	BalanceAfter  int64                `gorm:"not null" json:"balanceAfter"`
	Metadata      datatypes.JSON       `gorm:"type:json" json:"metadata,omitempty" swaggertype:"object"`
	Hash          string               `gorm:"type:varchar(64);default:''" json:"hash"`
}

// GenerateHash returns the HMAC-SHA256 of the entry's audited fields.
func (t *TokenTransaction) GenerateHash(secret string) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%d|%s|%s",
		t.UserID, t.CreatedAt.UnixNano(), t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Type, t.Description)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHash reports whether the stored hash matches the entry's fields.
func (t *TokenTransaction) VerifyHash(secret string) bool {
	return hmac.Equal([]byte(t.Hash), []byte(t.GenerateHash(secret)))
}
