package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/agricoop/backend/internal/application/event"
	feeapp "github.com/agricoop/backend/internal/application/fee"
	paymentapp "github.com/agricoop/backend/internal/application/payment"
	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/auth"
	"github.com/agricoop/backend/internal/infrastructure/cache"
	"github.com/agricoop/backend/internal/infrastructure/config"
	"github.com/agricoop/backend/internal/infrastructure/event"
	"github.com/agricoop/backend/internal/infrastructure/logger"
	"github.com/agricoop/backend/internal/infrastructure/momo"
	"github.com/agricoop/backend/internal/infrastructure/persistence"
	"github.com/agricoop/backend/internal/infrastructure/scheduler"
	"github.com/agricoop/backend/internal/infrastructure/telemetry"
	"github.com/agricoop/backend/internal/interfaces/http/handler"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/agricoop/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	// OTLP export; both providers are no-ops unless telemetry.enabled is set
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		DBTracing:         cfg.Telemetry.DBTracing,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracing", zap.Error(err))
		}
	}()
	logProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := logProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()
	log = logProvider.Bridge(log, logger.ParseLevel(cfg.Telemetry.LogLevel))

	loc := cfg.App.Location()
	log.Info("Starting fee service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", loc.String()),
	)
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database, with GORM reporting through zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:        telemetryCfg.Enabled && telemetryCfg.DBTracing,
		DBName:         cfg.Database.DBName,
		WithVariables:  cfg.Telemetry.DBQueryVariables,
		TracerProvider: tracerProvider.Provider(),
	}, log); err != nil {
		log.Fatal("Failed to enable database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Callback dedupe and gateway token cache
	stores, err := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStores()
	if err != nil {
		log.Fatal("Failed to create cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()

	gateway, closeGateway := newGateway(cfg.Momo, stores, log)
	defer closeGateway()

	// Event bus with the audit trail subscribed to every fee and payment event
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(eventapp.NewAuditLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Repositories
	clock := shared.NewSystemClock(loc)
	ruleRepo := persistence.NewGormFeeRuleRepository(db.DB)
	assignmentRepo := persistence.NewGormUnitAssignmentRepository(db.DB)
	applicationRepo := persistence.NewGormFeeApplicationRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)

	// Application services
	ruleService := feeapp.NewRuleService(feeapp.RuleServiceConfig{
		RuleRepo:        ruleRepo,
		AssignmentRepo:  assignmentRepo,
		ApplicationRepo: applicationRepo,
		EventPublisher:  eventBus,
		Clock:           clock,
		Logger:          log,
	})
	schedulingService := feeapp.NewSchedulingService(feeapp.SchedulingServiceConfig{
		TxScope:         persistence.NewGormFeeTransactionScope(db.DB),
		RuleRepo:        ruleRepo,
		AssignmentRepo:  assignmentRepo,
		ApplicationRepo: applicationRepo,
		UnitRepo:        unitRepo,
		Resolver: feeapp.NewApplicabilityResolver(feeapp.ResolverConfig{
			NewMemberMonths:    cfg.Fees.NewMemberMonths,
			ActiveMemberMonths: cfg.Fees.ActiveMemberMonths,
			Clock:              clock,
			Logger:             log,
		}),
		EventPublisher: eventBus,
		Clock:          clock,
		Logger:         log,
	})
	paymentService := paymentapp.NewService(paymentapp.ServiceConfig{
		TxScope:         persistence.NewGormPaymentTransactionScope(db.DB),
		PaymentRepo:     paymentRepo,
		FeeAppRepo:      applicationRepo,
		Gateway:         gateway,
		Idempotency:     stores.Idempotency,
		EventPublisher:  eventBus,
		Clock:           clock,
		Logger:          log,
		Currency:        cfg.Momo.Currency,
		AmountTolerance: decimal.NewFromFloat(cfg.Fees.AmountTolerance),
	})

	// Daily fee sweep
	if cfg.Scheduler.Enabled {
		sweepScheduler := scheduler.NewScheduler(
			scheduler.NewSchedulerConfig(cfg.Scheduler),
			scheduler.NewFeeSweepExecutor(schedulingService, log),
			log,
		)
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start fee sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := sweepScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping fee sweep scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewCronTrigger(scheduler.NewCronTriggerConfig(cfg.Scheduler, loc), sweepScheduler, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start fee sweep trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping fee sweep trigger", zap.Error(err))
			}
		}()
		log.Info("Fee sweep scheduled",
			zap.Int("hour", cfg.Scheduler.SweepHour),
			zap.Int("minute", cfg.Scheduler.SweepMinute),
		)
	}

	// Per-user cap on payment initiations
	var paymentLimiter *middleware.RateLimiter
	if cfg.HTTP.PaymentRateLimit > 0 {
		paymentLimiter = middleware.NewRateLimiter(cfg.HTTP.PaymentRateLimit, time.Minute)
		defer paymentLimiter.Stop()
	}

	// HTTP
	middleware.SetupValidator()
	base := handler.NewBaseHandler(cfg.App.Debug, log)
	engine := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		JWTService:     auth.NewJWTService(cfg.JWT),
		Logger:         log,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		PaymentLimiter: paymentLimiter,
		Tracing: middleware.TracingConfig{
			Enabled:        tracerProvider.IsEnabled(),
			ServiceName:    cfg.App.Name,
			TracerProvider: tracerProvider.Provider(),
		},
	}, router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": db.Ping,
		}),
		FeeRules:        handler.NewFeeRuleHandler(base, ruleService, schedulingService, loc),
		FeeApplications: handler.NewFeeApplicationHandler(base, ruleService),
		Payments:        handler.NewPaymentHandler(base, paymentService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newGateway returns the MoMo client, or a gateway that refuses every charge
// when no credentials are configured outside production.
func newGateway(cfg config.MomoConfig, stores *cache.Stores, log *zap.Logger) (payment.Gateway, func()) {
	client, err := momo.NewClient(momo.NewConfig(cfg),
		momo.WithTokenCache(stores.Tokens),
		momo.WithLogger(log),
	)
	if err != nil {
		log.Warn("MoMo gateway not configured, payment initiation is disabled", zap.Error(err))
		return momo.NotConfigured{}, func() {}
	}
	log.Info("MoMo gateway configured",
		zap.String("base_url", cfg.BaseURL),
		zap.String("target_environment", cfg.TargetEnvironment),
	)
	return client, func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing MoMo client", zap.Error(err))
		}
	}
}
