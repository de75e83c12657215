package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	chatbotapp "github.com/crm/backend/internal/application/chatbot"
	crmapp "github.com/crm/backend/internal/application/crm"
	identityapp "github.com/crm/backend/internal/application/identity"
	notificationapp "github.com/crm/backend/internal/application/notification"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/firestore"
	"github.com/crm/backend/internal/infrastructure/llm"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/migration"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/crm/backend/migrations"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// documentStore is the opened backend together with its lifecycle hooks
type documentStore struct {
	document.Store
	name  string
	ping  handler.Pinger
	close func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry first so database and HTTP instrumentation pick up the global providers
	tp, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	metrics, err := telemetry.NewCRMMetrics(tp.Meter("crm-backend"))
	if err != nil {
		log.Fatal("Failed to create CRM metrics", zap.Error(err))
	}

	store, err := openDocumentStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	log.Info("Document store ready", zap.String("driver", store.name))

	// Redis backs read markers, the chatbot context cache and token revocations.
	// Without it everything falls back to process memory.
	stores, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStores()
	if err != nil {
		log.Fatal("Failed to create cache stores", zap.Error(err))
	}

	var revocations auth.RevocationList = auth.NewMemoryRevocationList()
	if stores.Client != nil {
		revocations = auth.NewRedisRevocationList(stores.Client)
	}

	// Event bus carries document writes and sign-outs between services
	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	generator, err := llm.NewTextGenerator(cfg.LLM, log, metrics)
	if err != nil {
		log.Fatal("Failed to create text generator", zap.Error(err))
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(store, jwtService, revocations, bus, log)
	authService.RegisterHandlers(bus)

	notificationService := notificationapp.NewService(store, stores.ReadMarkers, cfg.Notification.Collection, metrics, log)
	notificationService.RegisterHandlers(bus)

	assembler := chatbotapp.NewContextAssembler(store, stores.Snapshots, chatbotapp.AssemblerConfig{
		Collections:  cfg.Chatbot.Collections,
		TTL:          cfg.Chatbot.ContextTTL,
		RedactFields: cfg.Chatbot.RedactFields,
		Timeout:      cfg.Chatbot.ContextTimeout,
	}, metrics, log)
	assembler.RegisterHandlers(bus)
	chatService := chatbotapp.NewService(assembler, chatbotapp.NewResponder(generator, "", metrics, log), log)
	chatService.RegisterHandlers(bus)

	recordService := crmapp.NewRecordService(store, bus, log)
	analysisService := crmapp.NewAnalysisService(store, generator, bus, log)
	dashboardService := crmapp.NewDashboardService(store, log)

	created, err := authService.EnsureBootstrapAdmin(ctx, identityapp.BootstrapAdminInput{
		Name:     cfg.Bootstrap.AdminName,
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
	})
	if err != nil {
		log.Fatal("Failed to bootstrap administrator", zap.Error(err))
	}
	if created {
		log.Info("Bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Request id first so recovery, access log and spans all carry it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		Enabled:          tp.IsEnabled(),
		SkipPathPrefixes: []string{"/api/v1/health"},
	}), middleware.TracingAttributeInjector())
	engine.Use(middleware.HTTPMetrics(tp.Meter("crm-backend/http"), log))
	securityCfg := middleware.DefaultSecurityConfig()
	if cfg.IsProduction() {
		securityCfg.HSTSMaxAge = 365 * 24 * time.Hour
		securityCfg.HSTSIncludeSubdomains = true
	}
	engine.Use(middleware.SecureWithConfig(securityCfg))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, rateLimiter)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	chatLimiter := middleware.NewRateLimiter(cfg.HTTP.ChatbotRateLimitRequests, cfg.HTTP.ChatbotRateLimitWindow)
	limiters = append(limiters, chatLimiter)

	checks := map[string]handler.Pinger{store.name: store.ping}
	if stores.Client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return stores.Client.Ping(ctx).Err()
		}
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:  jwtService,
			Revocations: revocations,
			SkipPaths: []string{
				r.Prefix() + "/auth/login",
				r.Prefix() + "/auth/refresh",
			},
			SkipPathPrefixes: []string{r.Prefix() + "/health"},
			Logger:           log,
		}),
		middleware.TracingAttributeInjector(),
	)
	r.Register(router.APIGroups(router.Handlers{
		Health:       handler.NewHealthHandler(cfg.App.Name, version, checks),
		Auth:         handler.NewAuthHandler(authService),
		Notification: handler.NewNotificationHandler(notificationService),
		Chatbot:      handler.NewChatbotHandler(chatService),
		Record:       handler.NewRecordHandler(recordService),
		CRM:          handler.NewCRMHandler(recordService, analysisService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
	}, router.Guards{
		Admin:    middleware.RequireRole(log, "admin"),
		ChatSend: middleware.RateLimitByUser(chatLimiter),
	})...)
	r.Setup()

	// Create HTTP server with config
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, limiter := range limiters {
		limiter.Stop()
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := stores.Close(); err != nil {
		log.Error("Error closing Redis", zap.Error(err))
	}
	if err := store.close(); err != nil {
		log.Error("Error closing document store", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDocumentStore connects the configured backend: firestore, or gorm on postgres/sqlite
func openDocumentStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*documentStore, error) {
	if cfg.Store.Driver == "firestore" {
		client, err := firestore.NewClient(ctx, &cfg.Store)
		if err != nil {
			return nil, err
		}
		fs := firestore.NewStore(client)
		return &documentStore{Store: fs, name: "firestore", ping: fs.Ping, close: fs.Close}, nil
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := migrateSchema(&cfg.Database, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   dbSystem,
	}, log); err != nil {
		log.Warn("Failed to enable database tracing", zap.Error(err))
	}

	return &documentStore{
		Store: persistence.NewGormDocumentStore(db.DB),
		name:  "database",
		ping:  db.Ping,
		close: db.Close,
	}, nil
}

// migrateSchema applies the embedded SQL migrations on postgres. sqlite has no
// migrate driver in the build, so the documents table is created from the model.
func migrateSchema(cfg *config.DatabaseConfig, db *persistence.Database, log *zap.Logger) error {
	if cfg.Driver == "sqlite" {
		return db.DB.AutoMigrate(&models.DocumentModel{})
	}

	// The migrator closes the connection it is given, so it gets its own
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}
