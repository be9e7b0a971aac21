package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	appidentity "github.com/erp/portal/internal/application/identity"
	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/infrastructure/auth"
	"github.com/erp/portal/internal/infrastructure/config"
	"github.com/erp/portal/internal/infrastructure/export"
	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/infrastructure/mockdata"
	"github.com/erp/portal/internal/infrastructure/notify"
	"github.com/erp/portal/internal/infrastructure/persistence"
	"github.com/erp/portal/internal/infrastructure/printing"
	"github.com/erp/portal/internal/infrastructure/scheduler"
	"github.com/erp/portal/internal/infrastructure/session"
	"github.com/erp/portal/internal/infrastructure/storage"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"github.com/erp/portal/internal/interfaces/http/handler"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/erp/portal/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Customer Portal API
//	@version		1.0
//	@description	Customer self-service portal: inquiries, orders, deliveries, invoices, payments, memos and sales analytics

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting customer portal",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.TracingEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics("portal")
	}

	// Session store
	store, closeStore, purge := openSessionStore(rootCtx, cfg, log)
	defer closeStore()
	if purge != nil {
		if err := purge.Start(rootCtx); err != nil {
			log.Fatal("Failed to start session purge", zap.Error(err))
		}
		defer func() { _ = purge.Stop(context.Background()) }()
	}

	// Identity
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:     cfg.Auth.JWTSecret,
		Expiration: cfg.Auth.TokenExpiration,
		Issuer:     cfg.Auth.Issuer,
	})
	credential, err := identity.NewCredential(identity.User{
		CustomerID: cfg.Auth.CustomerID,
		Name:       cfg.Auth.Name,
		Email:      cfg.Auth.Email,
		Company:    cfg.Auth.Company,
		Phone:      cfg.Auth.Phone,
		Address:    cfg.Auth.Address,
	}, cfg.Auth.Password, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal("Failed to hash portal credential", zap.Error(err))
	}
	authService := appidentity.NewAuthService(
		[]identity.Credential{credential},
		store,
		jwtService,
		metrics,
		appidentity.AuthServiceConfig{LoginDelay: cfg.Auth.LoginDelay},
		log,
	)

	// Portal workspaces
	documents, closeDocuments := newDocumentExporter(rootCtx, cfg, log)
	defer closeDocuments()

	hub := notify.NewHub(log, allowOrigin(cfg.HTTP.CORSAllowOrigins))
	registry := appportal.NewRegistry(appportal.Dependencies{
		Source: mockdata.New(mockdata.Options{
			Seed:        uint64(cfg.MockData.Seed),
			Latency:     cfg.MockData.Latency,
			FailureRate: cfg.MockData.FailureRate,
		}),
		Documents: documents,
		Sheets:    export.NewSheetWriter(),
		Notifier:  hub,
		Metrics:   metrics,
		Logger:    log,
	}, hub)
	defer registry.Close()

	authHandler := handler.NewAuthHandler(authService, hub)
	portalHandler := handler.NewPortalHandler(authService, registry)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, authService, registry)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()

	// Middleware stack in order: request id, panic recovery, access log,
	// security headers, CORS, tracing, metrics, body limit.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	})...)
	engine.Use(middleware.HTTPMetrics(metrics))
	engine.Use(middleware.BodyLimit(1 << 20))

	// Health and metrics endpoints outside API versioning
	engine.GET("/health", systemHandler.Health)
	if metrics != nil {
		engine.GET(cfg.Telemetry.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.AllowQueryToken = true
	jwtConfig.Logger = log
	for _, p := range router.PublicPaths {
		jwtConfig.SkipPaths = append(jwtConfig.SkipPaths, r.BasePath()+p)
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	var loginGuard gin.HandlerFunc
	if cfg.HTTP.LoginRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.LoginRateLimitRequests, cfg.HTTP.LoginRateLimitWindow)
		defer limiter.Close()
		loginGuard = middleware.RateLimit(limiter)
		log.Info("Login rate limiting enabled",
			zap.Int("requests", cfg.HTTP.LoginRateLimitRequests),
			zap.Duration("window", cfg.HTTP.LoginRateLimitWindow),
		)
	}

	router.RegisterAPI(r, router.Handlers{
		Auth:   authHandler,
		Portal: portalHandler,
		System: systemHandler,
	}, loginGuard).Setup()

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
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openSessionStore opens the store selected by session.driver. SQL stores
// come with a job that purges expired rows.
func openSessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (identity.SessionStore, func(), *scheduler.PeriodicJob) {
	switch cfg.Session.Driver {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Session.RedisAddr(),
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		}, cfg.Session.TTL)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		log.Info("Session store ready", zap.String("driver", "redis"), zap.String("addr", cfg.Session.RedisAddr()))
		return store, func() { _ = store.Close() }, nil

	case "sqlite", "postgres":
		db, err := persistence.Open(&cfg.Session, persistence.Options{
			Logger:  log,
			Tracing: cfg.Telemetry.TracingEnabled,
		})
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		store, err := session.NewSQLStore(db.DB, cfg.Session.TTL)
		if err != nil {
			log.Fatal("Failed to prepare session table", zap.Error(err))
		}
		purge := scheduler.NewPeriodicJob("session_purge", cfg.Session.PurgeInterval, func(ctx context.Context) error {
			n, err := store.PurgeExpired(ctx)
			if err == nil && n > 0 {
				log.Debug("Purged expired sessions", zap.Int64("count", n))
			}
			return err
		}, log)
		log.Info("Session store ready", zap.String("driver", cfg.Session.Driver))
		return store, func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}, purge

	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		log.Info("Session store ready", zap.String("driver", "memory"))
		return store, func() { _ = store.Close() }, nil
	}
}

// newDocumentExporter builds the invoice PDF renderer, optionally archiving
// every rendered document to S3.
func newDocumentExporter(ctx context.Context, cfg *config.Config, log *zap.Logger) (portal.DocumentExporter, func()) {
	var (
		exporter portal.DocumentExporter
		closer   = func() {}
	)
	switch cfg.Export.PDFRenderer {
	case "chromedp":
		chrome := printing.NewChromedpExporter(printing.ChromedpConfig{
			ExecPath: cfg.Export.ChromePath,
			Timeout:  cfg.Export.RenderTimeout,
			Logger:   log,
		})
		exporter = chrome
		closer = func() { _ = chrome.Close() }
	default:
		exporter = printing.NewStaticExporter(cfg.Export.PDFLatency)
	}

	if !cfg.Export.ArchiveEnabled {
		return exporter, closer
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:       cfg.Export.S3Bucket,
		Region:       cfg.Export.S3Region,
		Endpoint:     cfg.Export.S3Endpoint,
		AccessKey:    cfg.Export.S3AccessKey,
		SecretKey:    cfg.Export.S3SecretKey,
		UsePathStyle: cfg.Export.S3UsePathStyle,
		Prefix:       cfg.Export.S3ArchivePrefix,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize invoice archive", zap.Error(err))
	}
	log.Info("Invoice archive enabled", zap.String("bucket", cfg.Export.S3Bucket))
	return printing.NewArchivingExporter(exporter, store, log), closer
}

// allowOrigin accepts websocket upgrades from the configured CORS origins.
// Without configured origins the hub accepts any origin.
func allowOrigin(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin) || slices.Contains(origins, "*")
	}
}
