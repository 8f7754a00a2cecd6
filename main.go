package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tokenledger-backend/config"
	"tokenledger-backend/internal/api"
	"tokenledger-backend/internal/database"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/store"
	"tokenledger-backend/internal/store/memory"
	"tokenledger-backend/pkg/logger"
)

// @title tokenledger-backend API
// @version 1.0
// @description Token balance ledger: cost estimation, consumption, reconciliation and payment credits.

// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		zapLog.Fatal("failed to connect redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		st    store.Store
		ready func(context.Context) error
		opts  []services.LedgerOption
	)

	if cfg.StorageDriver == config.StorageDriverMemory {
		zapLog.Warn("using in-memory storage; balances are lost on restart")
		st = memory.New()
	} else {
		db, err := database.Connect(cfg, zapLog)
		if err != nil {
			zapLog.Fatal("failed to connect database", zap.String("driver", cfg.StorageDriver), zap.Error(err))
		}
		if err := database.Migrate(db); err != nil {
			zapLog.Fatal("failed to migrate database", zap.Error(err))
		}
		st = store.NewGormStore(db)
		ready = pingDB(db)

		if cfg.VerifyIdentity {
			opts = append(opts, services.WithIdentityChecker(services.NewUserDirectory(db, rdb)))
		}
	}

	var denylist *services.TokenDenylist
	if rdb != nil {
		opts = append(opts, services.WithResetLock(services.NewRedisResetLock(rdb, 10*time.Minute)))
		denylist = services.NewTokenDenylist(rdb)
	}

	ledger := services.NewLedgerService(st, services.LedgerConfigFrom(cfg), logger.Named("ledger"), opts...)

	router := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Logger:   zapLog,
		Ledger:   ledger,
		Denylist: denylist,
		Ready:    ready,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageDriver),
			zap.String("overdraft_policy", cfg.OverdraftPolicy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
}

func pingDB(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
