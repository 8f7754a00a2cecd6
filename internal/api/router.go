package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tokenledger-backend/config"
	adminAuth "tokenledger-backend/internal/api/v1/admin/auth"
	adminLedger "tokenledger-backend/internal/api/v1/admin/ledger"
	adminPayment "tokenledger-backend/internal/api/v1/admin/payment"
	adminTransaction "tokenledger-backend/internal/api/v1/admin/transaction"
	"tokenledger-backend/internal/api/v1/tokens"
	"tokenledger-backend/internal/middleware"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

// Dependencies are the process-owned collaborators the router wires into handlers.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	Ledger *services.LedgerService
	// Denylist is nil when redis is not configured; admin tokens then cannot be revoked.
	Denylist *services.TokenDenylist
	// Ready reports whether storage is reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log.Named("http")), middleware.Metrics())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300 * time.Second,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", healthz(deps.Ready))

	v1 := router.Group("/api/v1")
	{
		tokens.RegisterRoutes(v1, tokens.NewHandler(deps.Ledger))

		var revocations middleware.TokenRevocations
		if deps.Denylist != nil {
			revocations = deps.Denylist
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(deps.Config.JWTSecret, revocations, log.Named("auth")))
		{
			adminPayment.RegisterRoutes(admin, adminPayment.NewHandler(deps.Ledger))
			adminLedger.RegisterRoutes(admin, adminLedger.NewHandler(deps.Ledger, log.Named("admin")))
			adminTransaction.RegisterRoutes(admin, adminTransaction.NewHandler(deps.Ledger, deps.Config.TransactionHashSecret))
			if deps.Denylist != nil {
				adminAuth.RegisterRoutes(admin, adminAuth.NewHandler(deps.Denylist))
			}
		}
	}

	return router
}

func healthz(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, utils.NewResponse(http.StatusServiceUnavailable, "storage unreachable", gin.H{"status": "degraded"}))
				return
			}
		}
		c.JSON(http.StatusOK, utils.NewSuccessResponse("ok", gin.H{"status": "ok"}))
	}
}
