package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tokenledger-backend/config"
	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/store"
)

const (
	maxUserIDLength     = 128
	maxReferenceLength  = 128
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type AdjustmentType string

const (
	AdjustmentNone             AdjustmentType = "none"
	AdjustmentAdditionalCharge AdjustmentType = "additional_charge"
	AdjustmentRefund           AdjustmentType = "refund"
)

// IdentityChecker reports whether a user id belongs to a known account.
type IdentityChecker interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// ResetLocker serializes ResetAll across processes. The returned func releases the lock.
type ResetLocker interface {
	Acquire(ctx context.Context) (func(), error)
}

type LedgerConfig struct {
	DefaultBalance  int64
	OverdraftPolicy string
	MaxRetries      int
	ResetBatchSize  int
	HashSecret      string
}

// LedgerConfigFrom extracts the ledger settings from the application config.
func LedgerConfigFrom(cfg *config.Config) LedgerConfig {
	return LedgerConfig{
		DefaultBalance:  cfg.DefaultBalance,
		OverdraftPolicy: cfg.OverdraftPolicy,
		MaxRetries:      cfg.MaxRetries,
		ResetBatchSize:  cfg.ResetBatchSize,
		HashSecret:      cfg.TransactionHashSecret,
	}
}

type Sufficiency struct {
	Sufficient     bool  `json:"sufficient"`
	CurrentBalance int64 `json:"currentBalance"`
	RequiredTokens int64 `json:"requiredTokens"`
}

type AdjustResult struct {
	Adjusted       bool                 `json:"adjusted"`
	Balance        *models.TokenBalance `json:"balance"`
	TokensAdjusted int64                `json:"tokensAdjusted"`
	AdjustmentType AdjustmentType       `json:"adjustmentType"`
	// Shortfall is the part of an additional charge that could not be collected.
	Shortfall int64 `json:"shortfall,omitempty"`
}

type PaymentResult struct {
	Applied bool                 `json:"applied"`
	Balance *models.TokenBalance `json:"balance"`
}

type ResetSummary struct {
	Balances     int64 `json:"balances"`
	Transactions int64 `json:"transactions"`
	Batches      int   `json:"batches"`
}

// LedgerService owns every change to token balances. Each mutation reads the
// current balance, computes the next one and commits it together with its
// transaction entry through a version-checked write, retrying on conflict.
type LedgerService struct {
	store     store.Store
	identity  IdentityChecker
	resetLock ResetLocker
	cfg       LedgerConfig
	log       *zap.Logger
	now       func() time.Time
}

type LedgerOption func(*LedgerService)

// WithIdentityChecker makes balance creation reject unknown user ids.
func WithIdentityChecker(checker IdentityChecker) LedgerOption {
	return func(s *LedgerService) { s.identity = checker }
}

func WithResetLock(lock ResetLocker) LedgerOption {
	return func(s *LedgerService) { s.resetLock = lock }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(st store.Store, cfg LedgerConfig, log *zap.Logger, opts ...LedgerOption) *LedgerService {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ResetBatchSize <= 0 {
		cfg.ResetBatchSize = 200
	}
	if cfg.OverdraftPolicy == "" {
		cfg.OverdraftPolicy = config.OverdraftPolicyClamp
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &LedgerService{
		store: st,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance returns the user's balance, creating it with the default
// starting balance on first access.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (balance *models.TokenBalance, err error) {
	defer func() { observe("get_balance", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return s.loadOrCreate(ctx, userID)
}

// CheckSufficiency reports whether the user can afford required tokens.
// It never changes the balance.
func (s *LedgerService) CheckSufficiency(ctx context.Context, userID string, required int64) (result *Sufficiency, err error) {
	defer func() { observe("check", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if required <= 0 {
		return nil, invalidInput("required tokens must be positive, got %d", required)
	}

	balance, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Sufficiency{
		Sufficient:     balance.Tokens >= required,
		CurrentBalance: balance.Tokens,
		RequiredTokens: required,
	}, nil
}

// Consume deducts amount from the balance and records a consume entry.
// It fails with an *InsufficientTokensError, leaving the balance untouched,
// when the balance is below amount.
func (s *LedgerService) Consume(ctx context.Context, userID string, amount int64, description string) (balance *models.TokenBalance, err error) {
	defer func() { observe("consume", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, invalidInput("amount must be positive, got %d", amount)
	}

	committed, err := s.mutate(ctx, "consume", userID, func(current *models.TokenBalance) (*store.Mutation, error) {
		if current.Tokens < amount {
			return nil, &InsufficientTokensError{UserID: userID, Balance: current.Tokens, Required: amount}
		}

		next := *current
		next.Tokens -= amount
		next.TotalSpent += amount

		return s.stage(current, next, amount, &models.TokenTransaction{
			Amount:      -amount,
			Type:        models.TokenTransactionConsume,
			Description: labelOr(description, "token consumption"),
		}), nil
	})
	if err != nil {
		return nil, err
	}

	tokensMoved.WithLabelValues("debit").Add(float64(amount))
	return committed.Balance, nil
}

type adjustmentDetails struct {
	EstimatedTokens int64 `json:"estimatedTokens"`
	ActualTokens    int64 `json:"actualTokens"`
	Requested       int64 `json:"requested"`
	Shortfall       int64 `json:"shortfall,omitempty"`
}

// Adjust reconciles an estimated charge with the actual cost. A positive
// difference is charged, a negative one refunded, and zero is a no-op.
//
// Under the clamp overdraft policy an additional charge larger than the
// balance takes what is left and reports the rest as Shortfall. Under the
// strict policy it fails with an *InsufficientTokensError instead.
func (s *LedgerService) Adjust(ctx context.Context, userID string, estimated, actual int64, description string) (result *AdjustResult, err error) {
	defer func() { observe("adjust", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if estimated < 0 || actual < 0 {
		return nil, invalidInput("estimated and actual tokens must not be negative")
	}

	delta := actual - estimated
	if delta == 0 {
		balance, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &AdjustResult{Adjusted: true, Balance: balance, AdjustmentType: AdjustmentNone}, nil
	}

	var moved, shortfall int64
	committed, err := s.mutate(ctx, "adjust", userID, func(current *models.TokenBalance) (*store.Mutation, error) {
		next := *current
		details := adjustmentDetails{EstimatedTokens: estimated, ActualTokens: actual, Requested: delta}

		if delta > 0 {
			charge := delta
			if current.Tokens < delta {
				if s.cfg.OverdraftPolicy == config.OverdraftPolicyStrict {
					return nil, &InsufficientTokensError{UserID: userID, Balance: current.Tokens, Required: delta}
				}
				charge = current.Tokens
			}
			moved, shortfall = charge, delta-charge
			details.Shortfall = shortfall

			next.Tokens -= charge
			next.TotalSpent += charge

			return s.stage(current, next, charge, &models.TokenTransaction{
				Amount:      -charge,
				Type:        models.TokenTransactionAdditionalCharge,
				Description: labelOr(description, fmt.Sprintf("additional charge: actual %d exceeded estimate %d", actual, estimated)),
				Metadata:    toJSON(details),
			}), nil
		}

		refund := -delta
		moved, shortfall = refund, 0

		next.Tokens += refund
		next.TotalSpent -= refund
		if next.TotalSpent < 0 {
			next.TotalSpent = 0
		}

		return s.stage(current, next, 0, &models.TokenTransaction{
			Amount:      refund,
			Type:        models.TokenTransactionRefund,
			Description: labelOr(description, fmt.Sprintf("refund: actual %d below estimate %d", actual, estimated)),
			Metadata:    toJSON(details),
		}), nil
	})
	if err != nil {
		return nil, err
	}

	result = &AdjustResult{Adjusted: true, Balance: committed.Balance, Shortfall: shortfall}
	if delta > 0 {
		result.AdjustmentType = AdjustmentAdditionalCharge
		result.TokensAdjusted = moved
		tokensMoved.WithLabelValues("debit").Add(float64(moved))
	} else {
		result.AdjustmentType = AdjustmentRefund
		result.TokensAdjusted = moved
		tokensMoved.WithLabelValues("credit").Add(float64(moved))
	}
	if shortfall > 0 {
		s.log.Warn("additional charge clamped to balance",
			zap.String("user_id", userID),
			zap.Int64("requested", delta),
			zap.Int64("charged", moved))
	}
	return result, nil
}

// RecordPayment credits tokens bought through an external payment. The
// reference identifies the payment; replaying it returns Applied=false and
// leaves the balance unchanged.
func (s *LedgerService) RecordPayment(ctx context.Context, userID string, tokens int64, reference string) (result *PaymentResult, err error) {
	defer func() { observe("record_payment", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if tokens <= 0 {
		return nil, invalidInput("payment tokens must be positive, got %d", tokens)
	}
	reference = strings.TrimSpace(reference)
	if reference == "" || len(reference) > maxReferenceLength {
		return nil, invalidInput("payment reference must be 1-%d characters", maxReferenceLength)
	}

	seen, err := s.store.HasPayment(ctx, reference)
	if err != nil {
		return nil, s.storageError("record_payment", userID, err)
	}
	if seen {
		return s.duplicatePayment(ctx, userID, reference)
	}

	committed, err := s.mutate(ctx, "record_payment", userID, func(current *models.TokenBalance) (*store.Mutation, error) {
		next := *current
		next.Tokens += tokens
		next.TotalRecharged += tokens
		next.TotalFromPayments += tokens

		m := s.stage(current, next, 0, &models.TokenTransaction{
			Amount:      tokens,
			Type:        models.TokenTransactionPayment,
			Description: "payment " + reference,
			Metadata:    toJSON(map[string]string{"paymentReference": reference}),
		})
		m.Receipt = &models.PaymentReceipt{
			Reference: reference,
			UserID:    userID,
			Tokens:    tokens,
			CreatedAt: m.Balance.UpdatedAt,
		}
		return m, nil
	})
	if errors.Is(err, store.ErrDuplicatePayment) {
		return s.duplicatePayment(ctx, userID, reference)
	}
	if err != nil {
		return nil, err
	}

	tokensMoved.WithLabelValues("credit").Add(float64(tokens))
	s.log.Info("payment recorded",
		zap.String("user_id", userID),
		zap.String("reference", reference),
		zap.Int64("tokens", tokens))
	return &PaymentResult{Applied: true, Balance: committed.Balance}, nil
}

func (s *LedgerService) duplicatePayment(ctx context.Context, userID, reference string) (*PaymentResult, error) {
	s.log.Info("payment already recorded", zap.String("user_id", userID), zap.String("reference", reference))
	balance, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Applied: false, Balance: balance}, nil
}

// ListTransactions returns the user's most recent entries, newest first.
// A non-positive limit means DefaultHistoryLimit; limits above MaxHistoryLimit are capped.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) (entries []models.TokenTransaction, err error) {
	defer func() { observe("list_transactions", err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err = s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, s.storageError("list_transactions", userID, err)
	}
	if entries == nil {
		entries = []models.TokenTransaction{}
	}
	return entries, nil
}

// FindTransactions serves the admin listing and export.
func (s *LedgerService) FindTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.TokenTransaction, int64, error) {
	entries, total, err := s.store.QueryTransactions(ctx, filter)
	if err != nil {
		return nil, 0, s.storageError("find_transactions", "", err)
	}
	return entries, total, nil
}

// ResetAll zeroes every balance and deletes the whole transaction log.
// Balances are processed in batches, each batch in its own transaction, so a
// failure part way leaves earlier batches reset and later ones untouched;
// running ResetAll again finishes the job. Payment receipts are kept so a
// replayed payment cannot be credited twice.
func (s *LedgerService) ResetAll(ctx context.Context) (summary *ResetSummary, err error) {
	defer func() { observe("reset", err) }()

	if s.resetLock != nil {
		release, err := s.resetLock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	summary = &ResetSummary{}
	batch := s.cfg.ResetBatchSize
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ids, err := s.store.ListBalanceIDs(ctx, after, batch)
		if err != nil {
			return summary, s.storageError("reset", "", err)
		}
		if len(ids) == 0 {
			break
		}

		res, err := s.store.ResetBatch(ctx, ids, s.now())
		if err != nil {
			return summary, s.storageError("reset", "", err)
		}
		summary.Balances += res.Balances
		summary.Transactions += res.Transactions
		summary.Batches++
		after = ids[len(ids)-1]

		if len(ids) < batch {
			break
		}
	}

	// entries of users without a balance row
	for {
		n, err := s.store.PurgeTransactions(ctx, batch)
		if err != nil {
			return summary, s.storageError("reset", "", err)
		}
		summary.Transactions += n
		if n < int64(batch) {
			break
		}
	}

	s.log.Info("ledger reset completed",
		zap.Int64("balances", summary.Balances),
		zap.Int64("transactions", summary.Transactions),
		zap.Int("batches", summary.Batches))
	return summary, nil
}

func (s *LedgerService) loadOrCreate(ctx context.Context, userID string) (*models.TokenBalance, error) {
	balance, err := s.store.Get(ctx, userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, s.storageError("get_balance", userID, err)
	}

	if s.identity != nil {
		exists, err := s.identity.UserExists(ctx, userID)
		if err != nil {
			return nil, s.storageError("verify_identity", userID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
	}

	now := s.now()
	fresh := &models.TokenBalance{
		UserID:    userID,
		Tokens:    s.cfg.DefaultBalance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, fresh); err != nil {
		return nil, s.storageError("create_balance", userID, err)
	}

	// A concurrent request may have created the row first; read back the winner.
	balance, err = s.store.Get(ctx, userID)
	if err != nil {
		return nil, s.storageError("get_balance", userID, err)
	}
	s.log.Debug("balance created", zap.String("user_id", userID), zap.Int64("tokens", balance.Tokens))
	return balance, nil
}

type mutationFunc func(current *models.TokenBalance) (*store.Mutation, error)

// mutate runs build against a fresh read of the balance and commits the
// result. Lost version races and retryable storage conflicts are retried up
// to MaxRetries times before ErrTransientConflict is returned.
func (s *LedgerService) mutate(ctx context.Context, op, userID string, build mutationFunc) (*store.Mutation, error) {
	attempts := s.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		m, err := build(current)
		if err != nil {
			return nil, err
		}

		applied, err := s.store.ConditionalUpdate(ctx, *m)
		switch {
		case err == nil && applied:
			return m, nil
		case err == nil, errors.Is(err, store.ErrConflict):
			s.log.Debug("balance changed during update, retrying",
				zap.String("operation", op),
				zap.String("user_id", userID),
				zap.Int("attempt", attempt))
		case errors.Is(err, store.ErrDuplicatePayment):
			return nil, err
		default:
			return nil, s.storageError(op, userID, err)
		}
	}

	s.log.Warn("giving up after repeated update conflicts",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.Int("attempts", attempts))
	return nil, fmt.Errorf("%w: %s for user %s after %d attempts", ErrTransientConflict, op, userID, attempts)
}

// stage builds the CAS write taking current to next, completing entry with
// the audit fields shared by every transaction.
func (s *LedgerService) stage(current *models.TokenBalance, next models.TokenBalance, minTokens int64, entry *models.TokenTransaction) *store.Mutation {
	// created_at is stored with millisecond precision and the hash covers it
	now := s.now().Truncate(time.Millisecond)
	next.Version = current.Version + 1
	next.UpdatedAt = now

	entry.UserID = current.UserID
	entry.CreatedAt = now
	entry.BalanceBefore = current.Tokens
	entry.BalanceAfter = next.Tokens
	entry.Hash = entry.GenerateHash(s.cfg.HashSecret)

	return &store.Mutation{
		ExpectedVersion: current.Version,
		MinTokens:       minTokens,
		Balance:         &next,
		Entry:           entry,
	}
}

func (s *LedgerService) storageError(op, userID string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		s.log.Error("storage unavailable", zap.String("operation", op), zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Error("ledger storage failure", zap.String("operation", op), zap.String("user_id", userID), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalidInput("user id is required")
	}
	if len(userID) > maxUserIDLength {
		return invalidInput("user id exceeds %d characters", maxUserIDLength)
	}
	return nil
}

func labelOr(description, fallback string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return fallback
}

func toJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
