package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bankingapp "github.com/backoffice/backend/internal/application/banking"
	identityapp "github.com/backoffice/backend/internal/application/identity"
	paymentapp "github.com/backoffice/backend/internal/application/payment"
	reportapp "github.com/backoffice/backend/internal/application/report"
	treasuryapp "github.com/backoffice/backend/internal/application/treasury"
	"github.com/backoffice/backend/internal/infrastructure/ai"
	"github.com/backoffice/backend/internal/infrastructure/auth"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/infrastructure/persistence"
	"github.com/backoffice/backend/internal/infrastructure/staging"
	"github.com/backoffice/backend/internal/infrastructure/storage"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/backoffice/backend/internal/interfaces/http/handler"
	"github.com/backoffice/backend/internal/interfaces/http/middleware"
	"github.com/backoffice/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back office backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	orderRepo := persistence.NewGormPaymentOrderRepository(db.DB)
	accountRepo := persistence.NewGormBankAccountRepository(db.DB)
	ledgerRepo := persistence.NewGormTransactionRepository(db.DB)
	checkRepo := persistence.NewGormCheckRepository(db.DB)
	debtRepo := persistence.NewGormDebtRepository(db.DB)
	incomeRepo := persistence.NewGormIncomeRecordRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Staged receipt artifact store
	var artifacts paymentapp.ArtifactStore
	switch cfg.Staging.Driver {
	case "redis":
		redisStore, err := staging.NewRedisArtifactStore(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		artifacts = redisStore
		log.Info("Staged receipts backed by redis",
			zap.String("host", cfg.Redis.Host),
			zap.Duration("ttl", cfg.Staging.TTL))
	default:
		artifacts = staging.NewInMemoryArtifactStore()
		log.Warn("Staged receipts held in memory; staged verifications are lost on restart")
	}

	// Durable receipt storage
	var receipts paymentapp.ReceiptStorage
	switch cfg.Storage.Driver {
	case "s3":
		receipts, err = storage.NewS3ReceiptStorage(&cfg.Storage.S3)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
		log.Info("Receipts stored in S3", zap.String("bucket", cfg.Storage.S3.Bucket))
	default:
		receipts, err = storage.NewLocalReceiptStorage(cfg.Storage.LocalPath)
		if err != nil {
			log.Fatal("Failed to initialize local storage", zap.Error(err))
		}
		log.Info("Receipts stored locally", zap.String("path", cfg.Storage.LocalPath))
	}

	// Receipt analysis
	var analyzer paymentapp.ReceiptAnalyzer
	var categorizer paymentapp.Categorizer
	if cfg.AI.Provider == "gemini" && cfg.AI.APIKey != "" {
		gemini, err := ai.NewGeminiService(context.Background(), &cfg.AI, log)
		if err != nil {
			log.Fatal("Failed to initialize receipt analysis", zap.Error(err))
		}
		defer func() {
			if err := gemini.Close(); err != nil {
				log.Error("Error closing AI client", zap.Error(err))
			}
		}()
		analyzer = gemini
		categorizer = gemini
		log.Info("Receipt analysis enabled", zap.String("model", cfg.AI.Model))
	} else {
		analyzer = ai.NewStubAnalyzer()
		categorizer = ai.NewStubCategorizer()
		log.Warn("Receipt analysis running in stub mode; receipt verification will be rejected")
	}

	// Application services
	policy := paymentapp.Policy{AllowCancelApproved: cfg.Workflow.AllowCancelApproved}
	orderService := paymentapp.NewOrderService(orderRepo, accountRepo, ledgerRepo, db, categorizer, policy, log)
	verificationService := paymentapp.NewVerificationService(orderRepo, accountRepo, orderService, analyzer, artifacts, receipts, cfg.Staging.TTL, log)
	accountService := bankingapp.NewAccountService(accountRepo, ledgerRepo, db, log)
	treasuryService := treasuryapp.NewTreasuryService(checkRepo, debtRepo, incomeRepo, accountRepo, ledgerRepo, db, log)
	reportService := reportapp.NewReportService(orderRepo, accountRepo, ledgerRepo, debtRepo, incomeRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, log)

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	orderHandler := handler.NewPaymentOrderHandler(orderService, verificationService)
	accountHandler := handler.NewBankAccountHandler(accountService)
	treasuryHandler := handler.NewTreasuryHandler(treasuryService)
	reportHandler := handler.NewReportHandler(reportService)
	systemHandler := handler.NewSystemHandler(map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.Ping() },
	})

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Probes stay outside the versioned API group
	systemHandler.RegisterProbes(engine)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(authHandler, userHandler, orderHandler, accountHandler, treasuryHandler, reportHandler, systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Periodic sweep for overdue debts
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runOverdueSweep(sweepCtx, treasuryService, log)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runOverdueSweep flags overdue debts once an hour until ctx is cancelled
func runOverdueSweep(ctx context.Context, treasuryService *treasuryapp.TreasuryService, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flagged, err := treasuryService.SweepOverdueDebts(ctx)
			if err != nil {
				log.Warn("Overdue debt sweep failed", zap.Error(err))
				continue
			}
			if flagged > 0 {
				log.Info("Overdue debts flagged", zap.Int("count", flagged))
			}
		}
	}
}
