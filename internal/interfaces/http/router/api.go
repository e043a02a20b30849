package router

import (
	"net/http"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/auth"
	"github.com/agricoop/backend/internal/infrastructure/config"
	"github.com/agricoop/backend/internal/infrastructure/logger"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/agricoop/backend/internal/interfaces/http/handler"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Health          *handler.HealthHandler
	FeeRules        *handler.FeeRuleHandler
	FeeApplications *handler.FeeApplicationHandler
	Payments        *handler.PaymentHandler
}

// EngineConfig configures NewEngine
type EngineConfig struct {
	HTTP       config.HTTPConfig
	JWTService *auth.JWTService
	Logger     *zap.Logger
	// RequestTimeout bounds every request context; zero disables it.
	RequestTimeout time.Duration
	// PaymentLimiter throttles payment initiation per user; nil disables it.
	PaymentLimiter *middleware.RateLimiter
	Tracing        middleware.TracingConfig
}

// NewEngine builds the gin engine with the global middleware chain and every
// /api/v1 route.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	// The request logger picks up trace ids, so tracing runs first.
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", c.GetString("request_id")))
	})

	engine.GET("/health", h.Health.Health)

	authenticate := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: cfg.JWTService,
		Logger:     log,
	})
	adminOnly := middleware.RequireRoleWithConfig(middleware.RoleConfig{Logger: log}, shared.RoleAdmin)

	feeRules := NewDomainGroup("fee-rules", "/fee-rules").
		Use(authenticate, adminOnly).
		POST("", h.FeeRules.Create).
		GET("", h.FeeRules.List).
		POST("/sweep", h.FeeRules.Sweep).
		GET("/:id", h.FeeRules.Get).
		PUT("/:id", h.FeeRules.Update).
		DELETE("/:id", h.FeeRules.Delete).
		POST("/:id/apply", h.FeeRules.Apply).
		POST("/:id/schedule", h.FeeRules.Schedule).
		POST("/:id/assign-units", h.FeeRules.AssignUnits).
		GET("/:id/units", h.FeeRules.Units).
		POST("/:id/deactivate", h.FeeRules.Deactivate)

	feeApplications := NewDomainGroup("fee-applications", "/fee-applications").
		Use(authenticate).
		GET("", h.FeeApplications.List)

	initiate := []gin.HandlerFunc{h.Payments.Initiate}
	if cfg.PaymentLimiter != nil {
		initiate = append([]gin.HandlerFunc{middleware.RateLimitByUser(cfg.PaymentLimiter)}, initiate...)
	}
	payments := NewDomainGroup("payments", "/payments").
		Use(authenticate).
		POST("/initiate", initiate...).
		GET("/status", h.Payments.Status).
		POST("/status", h.Payments.Status).
		GET("/history", h.Payments.History)

	// The provider calls back without credentials
	callbacks := NewDomainGroup("payment-callbacks", "/payments").
		POST("/callback", h.Payments.Callback)

	NewRouter(engine, WithLogger(log)).
		Register(feeRules).
		Register(feeApplications).
		Register(payments).
		Register(callbacks).
		Setup()

	return engine
}
