// Package memory is a process-local Store used for STORAGE_DRIVER=memory and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	balances map[string]*models.TokenBalance
	entries  []models.TokenTransaction
	receipts map[string]models.PaymentReceipt
	nextID   uint

	// fault injection for ConditionalUpdate
	failUpdates int
	failErr     error
}

func New() *Store {
	return &Store{
		balances: make(map[string]*models.TokenBalance),
		receipts: make(map[string]models.PaymentReceipt),
	}
}

// FailNextUpdates makes the next n ConditionalUpdate calls fail without
// writing. A nil err reports the CAS as not applied; otherwise err is returned.
func (s *Store) FailNextUpdates(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates = n
	s.failErr = err
}

func (s *Store) Get(_ context.Context, userID string) (*models.TokenBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) Create(_ context.Context, balance *models.TokenBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.balances[balance.UserID]; exists {
		return nil
	}
	cp := *balance
	s.balances[balance.UserID] = &cp
	return nil
}

func (s *Store) ConditionalUpdate(_ context.Context, m store.Mutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdates > 0 {
		s.failUpdates--
		return false, s.failErr
	}

	if m.Receipt != nil {
		if _, dup := s.receipts[m.Receipt.Reference]; dup {
			return false, store.ErrDuplicatePayment
		}
	}

	current, ok := s.balances[m.Balance.UserID]
	if !ok || current.Version != m.ExpectedVersion || current.Tokens < m.MinTokens {
		return false, nil
	}

	next := *m.Balance
	next.CreatedAt = current.CreatedAt
	s.balances[next.UserID] = &next

	if m.Receipt != nil {
		s.receipts[m.Receipt.Reference] = *m.Receipt
	}
	if m.Entry != nil {
		s.nextID++
		m.Entry.ID = s.nextID
		s.entries = append(s.entries, *m.Entry)
	}
	return true, nil
}

func (s *Store) HasPayment(_ context.Context, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.receipts[reference]
	return ok, nil
}

func (s *Store) ListRecent(_ context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TokenTransaction
	// entries are appended in commit order, so walking backwards is newest first
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *Store) QueryTransactions(_ context.Context, filter store.TransactionFilter) ([]models.TokenTransaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.TokenTransaction
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; matches(e, filter) {
			matched = append(matched, e)
		}
	}

	total := int64(len(matched))
	start := 0
	if filter.Page > 1 {
		start = (filter.Page - 1) * filter.Limit
	}
	if start >= len(matched) {
		return []models.TokenTransaction{}, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func matches(e models.TokenTransaction, f store.TransactionFilter) bool {
	switch {
	case f.UserID != nil && e.UserID != *f.UserID:
		return false
	case f.Type != nil && e.Type != *f.Type:
		return false
	case f.StartTime != nil && e.CreatedAt.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.CreatedAt.After(*f.EndTime):
		return false
	case f.MinAmount != nil && e.Amount < *f.MinAmount:
		return false
	case f.MaxAmount != nil && e.Amount > *f.MaxAmount:
		return false
	}
	return true
}

func (s *Store) ListBalanceIDs(_ context.Context, afterUserID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.balances))
	for id := range s.balances {
		if id > afterUserID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) ResetBatch(_ context.Context, userIDs []string, at time.Time) (store.ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result store.ResetResult
	targets := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		b, ok := s.balances[id]
		if !ok {
			continue
		}
		targets[id] = true
		b.Tokens, b.TotalSpent, b.TotalRecharged, b.TotalFromPayments = 0, 0, 0, 0
		b.Version++
		b.UpdatedAt = at
		result.Balances++
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if targets[e.UserID] {
			result.Transactions++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return result, nil
}

func (s *Store) PurgeTransactions(_ context.Context, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := limit
	if n > len(s.entries) {
		n = len(s.entries)
	}
	s.entries = s.entries[n:]
	return int64(n), nil
}

var _ store.Store = (*Store)(nil)
