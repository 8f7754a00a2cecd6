package models

import "time"

// TokenBalance is the spendable token balance of one user.
// Tokens is authoritative; the Total* counters are informational.
type TokenBalance struct {
	UserID            string    `gorm:"primaryKey;type:varchar(128)" json:"userId"`
	Tokens            int64     `gorm:"not null;default:0" json:"tokens"`
	TotalSpent        int64     `gorm:"not null;default:0" json:"totalSpent"`
	TotalRecharged    int64     `gorm:"not null;default:0" json:"totalRecharged"`
	TotalFromPayments int64     `gorm:"not null;default:0" json:"totalFromPayments"`
	Version           int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// PaymentReceipt marks a payment reference as already credited.
type PaymentReceipt struct {
	ID        uint   `gorm:"primarykey"`
	Reference string `gorm:"uniqueIndex;type:varchar(128);not null"`
	UserID    string `gorm:"index;type:varchar(128);not null"`
	Tokens    int64  `gorm:"not null"`
	CreatedAt time.Time
}
