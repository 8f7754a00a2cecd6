package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tokenledger-backend/config"
	"tokenledger-backend/internal/models"
)

// Connect opens the configured SQL database. It returns an error for the
// memory driver, which has no database.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.StorageDriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("storage driver %q has no SQL database", cfg.StorageDriver)
	}

	db, err := gorm.Open(dialector, gormConfig(log))
	if err != nil {
		return nil, err
	}

	if cfg.StorageDriver == config.StorageDriverSQLite {
		// sqlite allows a single writer; serialize through one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// OpenSQLite opens a sqlite database with the same settings Connect uses.
// Tests pass "file:<name>?mode=memory&cache=shared" for an isolated in-memory database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(nil))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.TokenBalance{},
		&models.TokenTransaction{},
		&models.PaymentReceipt{},
	)
}

func gormConfig(log *zap.Logger) *gorm.Config {
	cfg := &gorm.Config{TranslateError: true}
	if log == nil {
		cfg.Logger = gormlogger.Discard
		return cfg
	}
	cfg.Logger = gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	return cfg
}
