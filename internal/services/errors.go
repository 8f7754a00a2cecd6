package services

import (
	"errors"
	"fmt"

	"tokenledger-backend/internal/store"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrUserNotFound       = errors.New("user not found")
	ErrTransientConflict  = errors.New("balance was modified concurrently, please retry")
	ErrStorageUnavailable = store.ErrUnavailable
	ErrInternal           = errors.New("internal ledger error")
	ErrResetInProgress    = errors.New("a ledger reset is already running")
)

// InsufficientTokensError carries what a caller needs to prompt a recharge.
type InsufficientTokensError struct {
	UserID   string
	Balance  int64
	Required int64
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens for user %s: balance %d, required %d", e.UserID, e.Balance, e.Required)
}

func (e *InsufficientTokensError) Unwrap() error {
	return ErrInsufficientTokens
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
