package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokenledger-backend/internal/models"
)

var errNotApplied = errors.New("store: conditional update not applied")

// GormStore implements Store on top of gorm (postgres in production, sqlite
// for local runs and tests). The database must be opened with
// gorm.Config{TranslateError: true} so duplicate receipts are detected.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, userID string) (*models.TokenBalance, error) {
	var balance models.TokenBalance
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ClassifyError(err)
	}
	return &balance, nil
}

func (s *GormStore) Create(ctx context.Context, balance *models.TokenBalance) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(balance).Error
	return ClassifyError(err)
}

func (s *GormStore) ConditionalUpdate(ctx context.Context, m Mutation) (bool, error) {
	if m.Balance == nil {
		return false, errors.New("store: mutation has no balance")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.Receipt != nil {
			if err := tx.Create(m.Receipt).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicatePayment
				}
				return err
			}
		}

		b := m.Balance
		result := tx.Model(&models.TokenBalance{}).
			Where("user_id = ? AND version = ? AND tokens >= ?", b.UserID, m.ExpectedVersion, m.MinTokens).
			Updates(map[string]interface{}{
				"tokens":              b.Tokens,
				"total_spent":         b.TotalSpent,
				"total_recharged":     b.TotalRecharged,
				"total_from_payments": b.TotalFromPayments,
				"version":             b.Version,
				"updated_at":          b.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotApplied
		}

		if m.Entry != nil {
			if err := tx.Create(m.Entry).Error; err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotApplied):
		return false, nil
	case errors.Is(err, ErrDuplicatePayment):
		return false, ErrDuplicatePayment
	}
	return false, ClassifyError(err)
}

func (s *GormStore) HasPayment(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.PaymentReceipt{}).
		Where("reference = ?", reference).
		Count(&count).Error
	if err != nil {
		return false, ClassifyError(err)
	}
	return count > 0, nil
}

func (s *GormStore) ListRecent(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	var entries []models.TokenTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, ClassifyError(err)
	}
	return entries, nil
}

func (s *GormStore) QueryTransactions(ctx context.Context, filter TransactionFilter) ([]models.TokenTransaction, int64, error) {
	var entries []models.TokenTransaction
	var total int64

	query := s.db.WithContext(ctx).Model(&models.TokenTransaction{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ClassifyError(err)
	}

	err := query.Order("created_at desc").Order("id desc").
		Limit(filter.Limit).Offset(filter.offset()).
		Find(&entries).Error
	if err != nil {
		return nil, 0, ClassifyError(err)
	}

	return entries, total, nil
}

func (s *GormStore) ListBalanceIDs(ctx context.Context, afterUserID string, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.TokenBalance{}).
		Where("user_id > ?", afterUserID).
		Order("user_id asc").
		Limit(limit).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, ClassifyError(err)
	}
	return ids, nil
}

func (s *GormStore) ResetBatch(ctx context.Context, userIDs []string, at time.Time) (ResetResult, error) {
	var result ResetResult
	if len(userIDs) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Bumping the version makes in-flight CAS writes against the old row retry.
		updated := tx.Model(&models.TokenBalance{}).
			Where("user_id IN ?", userIDs).
			Updates(map[string]interface{}{
				"tokens":              0,
				"total_spent":         0,
				"total_recharged":     0,
				"total_from_payments": 0,
				"version":             gorm.Expr("version + 1"),
				"updated_at":          at,
			})
		if updated.Error != nil {
			return updated.Error
		}

		deleted := tx.Where("user_id IN ?", userIDs).Delete(&models.TokenTransaction{})
		if deleted.Error != nil {
			return deleted.Error
		}

		result = ResetResult{Balances: updated.RowsAffected, Transactions: deleted.RowsAffected}
		return nil
	})
	if err != nil {
		return ResetResult{}, ClassifyError(err)
	}
	return result, nil
}

func (s *GormStore) PurgeTransactions(ctx context.Context, limit int) (int64, error) {
	db := s.db.WithContext(ctx)
	ids := db.Model(&models.TokenTransaction{}).Select("id").Order("id").Limit(limit)
	result := db.Where("id IN (?)", ids).Delete(&models.TokenTransaction{})
	if result.Error != nil {
		return 0, ClassifyError(result.Error)
	}
	return result.RowsAffected, nil
}

// ClassifyError maps driver errors onto the store sentinels.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"), pgErr.Code == "53300":
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// sqlite reports writer contention as a plain driver error
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}

	return err
}
