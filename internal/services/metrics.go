package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenledger_operations_total",
		Help: "Ledger operations by outcome.",
	}, []string{"operation", "result"})

	tokensMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenledger_tokens_total",
		Help: "Tokens debited from or credited to balances.",
	}, []string{"direction"})
)

func observe(operation string, err error) {
	ledgerOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrInsufficientTokens):
		return "insufficient"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrTransientConflict), errors.Is(err, ErrResetInProgress):
		return "conflict"
	case errors.Is(err, ErrStorageUnavailable):
		return "unavailable"
	}
	return "error"
}
