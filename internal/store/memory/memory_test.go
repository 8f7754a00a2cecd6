package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/store"
)

func credit(b models.TokenBalance, amount int64, ref string) store.Mutation {
	next := b
	next.Tokens += amount
	next.Version++
	m := store.Mutation{
		ExpectedVersion: b.Version,
		Balance:         &next,
		Entry:           &models.TokenTransaction{UserID: b.UserID, Amount: amount, CreatedAt: time.Now(), BalanceAfter: next.Tokens},
	}
	if ref != "" {
		m.Receipt = &models.PaymentReceipt{Reference: ref, UserID: b.UserID, Tokens: amount}
	}
	return m
}

func TestStore_ConditionalUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &models.TokenBalance{UserID: "u1", Tokens: 10, Version: 1}))
	b, err := s.Get(ctx, "u1")
	require.NoError(t, err)

	applied, err := s.ConditionalUpdate(ctx, credit(*b, 5, "ref-1"))
	require.NoError(t, err)
	assert.True(t, applied)

	// stale version
	applied, err = s.ConditionalUpdate(ctx, credit(*b, 5, ""))
	require.NoError(t, err)
	assert.False(t, applied)

	current, _ := s.Get(ctx, "u1")
	_, err = s.ConditionalUpdate(ctx, credit(*current, 5, "ref-1"))
	assert.ErrorIs(t, err, store.ErrDuplicatePayment)

	current, _ = s.Get(ctx, "u1")
	assert.Equal(t, int64(15), current.Tokens)

	entries, _ := s.ListRecent(ctx, "u1", 10)
	assert.Len(t, entries, 1)
}

func TestStore_FailNextUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &models.TokenBalance{UserID: "u1", Version: 1}))
	b, _ := s.Get(ctx, "u1")

	s.FailNextUpdates(1, store.ErrUnavailable)
	_, err := s.ConditionalUpdate(ctx, credit(*b, 1, ""))
	assert.ErrorIs(t, err, store.ErrUnavailable)

	applied, err := s.ConditionalUpdate(ctx, credit(*b, 1, ""))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestStore_ResetAndPage(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(ctx, &models.TokenBalance{UserID: id, Tokens: 7, Version: 1}))
		b, _ := s.Get(ctx, id)
		_, err := s.ConditionalUpdate(ctx, credit(*b, 3, ""))
		require.NoError(t, err)
	}

	ids, _ := s.ListBalanceIDs(ctx, "", 2)
	assert.Equal(t, []string{"a", "b"}, ids)

	res, err := s.ResetBatch(ctx, ids, time.Now())
	require.NoError(t, err)
	assert.Equal(t, store.ResetResult{Balances: 2, Transactions: 2}, res)

	a, _ := s.Get(ctx, "a")
	assert.Zero(t, a.Tokens)

	_, total, _ := s.QueryTransactions(ctx, store.TransactionFilter{Page: 1, Limit: 10})
	assert.Equal(t, int64(1), total)

	n, _ := s.PurgeTransactions(ctx, 10)
	assert.Equal(t, int64(1), n)
}
