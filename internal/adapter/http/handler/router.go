package handler

import (
	"time"

	"commission-ledger/internal/adapter/http/middleware"
	redisStore "commission-ledger/internal/adapter/storage/redis"
	"commission-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LifecycleSvc  ports.LifecycleService
	BalanceSvc    ports.BalanceService
	WithdrawalSvc ports.WithdrawalService
	WalletSvc     ports.WalletService
	ExportSvc     ports.ExportService
	PartnerSvc    ports.PartnerService

	PartnerRepo ports.PartnerRepository
	EncSvc      ports.EncryptionService
	SigSvc      ports.SignatureService
	NonceStore  ports.NonceStore
	TokenSvc    ports.TokenService

	TimestampDrift time.Duration // max clock skew accepted on partner events
	NonceTTL       time.Duration

	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- HMAC-authenticated routes (partner event API) ---
	eventAuth := middleware.EventAuth(
		deps.PartnerRepo, deps.EncSvc, deps.SigSvc, deps.NonceStore,
		deps.TimestampDrift, deps.NonceTTL, deps.Logger,
	)
	eventHandler := NewEventHandler(deps.LifecycleSvc)
	events := v1.Group("/events", eventAuth)
	{
		events.POST("/source-status", rl("events"), eventHandler.SourceStatusChanged)
	}

	// --- JWT-authenticated routes (agent + staff API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	staffOnly := middleware.RequireRole("staff")

	balanceHandler := NewBalanceHandler(deps.BalanceSvc)
	agents := v1.Group("/agents", jwtAuth)
	{
		agents.GET("/me/balance", rl("balances"), balanceHandler.GetMyBalance)
		agents.GET("/balances", rl("balances"), staffOnly, balanceHandler.GetBalances)
	}

	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	withdrawals := v1.Group("/withdrawals", jwtAuth)
	{
		withdrawals.POST("", rl("withdrawals"), withdrawalHandler.Create)
		withdrawals.GET("", rl("withdrawals"), withdrawalHandler.List)
		withdrawals.POST("/:id/advance", rl("withdrawals"), staffOnly, withdrawalHandler.Advance)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/entries", rl("wallet"), staffOnly, walletHandler.RecordEntry)
		wallet.GET("/entries", rl("wallet"), walletHandler.ListEntries)
	}

	exportHandler := NewExportHandler(deps.ExportSvc, deps.Logger)
	exports := v1.Group("/export", jwtAuth, staffOnly)
	{
		exports.GET("/commissions", rl("exports"), exportHandler.ExportCommissions)
		exports.GET("/withdrawals", rl("exports"), exportHandler.ExportWithdrawals)
	}

	partnerHandler := NewPartnerHandler(deps.PartnerSvc)
	partners := v1.Group("/partners", jwtAuth, staffOnly)
	{
		partners.POST("", rl("partners"), partnerHandler.Register)
		partners.POST("/:id/rotate-keys", rl("partners"), partnerHandler.RotateKeys)
	}

	return r
}
