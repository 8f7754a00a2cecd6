// Package store persists token balances, their transaction log and payment
// receipts. Every balance mutation goes through ConditionalUpdate, which
// applies the new balance and its log entry in one atomic write.
package store

import (
	"context"
	"errors"
	"time"

	"tokenledger-backend/internal/models"
)

var (
	// ErrNotFound is returned by Get when the user has no balance record.
	ErrNotFound = errors.New("store: balance not found")
	// ErrConflict signals a serialization failure the caller may retry.
	ErrConflict = errors.New("store: concurrent update conflict")
	// ErrUnavailable signals that the backing database could not be reached.
	ErrUnavailable = errors.New("store: storage unavailable")
	// ErrDuplicatePayment is returned when a receipt reference was already recorded.
	ErrDuplicatePayment = errors.New("store: payment reference already recorded")
)

// Mutation is a compare-and-swap write of one balance row.
//
// It applies only if the stored row still has ExpectedVersion and at least
// MinTokens tokens. Entry and Receipt, when set, are written in the same
// transaction as the balance.
type Mutation struct {
	ExpectedVersion int64
	MinTokens       int64
	Balance         *models.TokenBalance
	Entry           *models.TokenTransaction
	Receipt         *models.PaymentReceipt
}

// TransactionFilter selects log entries for the admin listing and export.
type TransactionFilter struct {
	UserID    *string
	Type      *models.TokenTransactionType
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *int64
	MaxAmount *int64
	Page      int
	Limit     int
}

func (f TransactionFilter) offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// ResetResult counts the rows touched by one reset batch.
type ResetResult struct {
	Balances     int64
	Transactions int64
}

// Store is the storage contract the ledger service depends on.
type Store interface {
	Get(ctx context.Context, userID string) (*models.TokenBalance, error)
	// Create inserts the balance unless a record for the user already exists.
	Create(ctx context.Context, balance *models.TokenBalance) error
	// ConditionalUpdate reports applied=false when the CAS predicate did not match.
	ConditionalUpdate(ctx context.Context, m Mutation) (bool, error)
	HasPayment(ctx context.Context, reference string) (bool, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error)
	QueryTransactions(ctx context.Context, filter TransactionFilter) ([]models.TokenTransaction, int64, error)
	// ListBalanceIDs pages through user ids in ascending order, starting after afterUserID.
	ListBalanceIDs(ctx context.Context, afterUserID string, limit int) ([]string, error)
	// ResetBatch zeroes the given balances and deletes their log entries atomically.
	ResetBatch(ctx context.Context, userIDs []string, at time.Time) (ResetResult, error)
	// PurgeTransactions deletes up to limit log entries and returns how many were removed.
	PurgeTransactions(ctx context.Context, limit int) (int64, error)
}
