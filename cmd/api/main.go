package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certapi/docs"
	"certapi/internal/config"
	"certapi/internal/database"
	"certapi/internal/database/migration"
	handlers "certapi/internal/http/handler"
	"certapi/internal/http/middleware"
	"certapi/internal/lock"
	"certapi/internal/otel"
	"certapi/internal/publish"
	"certapi/internal/render"
	"certapi/internal/repository"
	"certapi/internal/repository/memory"
	"certapi/internal/repository/postgres"
	"certapi/internal/service"
	"certapi/internal/storage"
	"certapi/internal/template"
)

const shutdownTimeout = 10 * time.Second

// @title Certificate API
// @version 1.0
// @description Issues, verifies and serves course completion certificates.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Certificate.Location()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	db, certRepo := openRecordStore(ctx, cfg, loc, logger)
	if db != nil {
		defer db.Close()
	}

	locker := openLocker(ctx, cfg, logger)

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}
	if cfg.Certificate.PublicBaseURL == "" {
		log.Fatalf("CERT_PUBLIC_BASE_URL or MINIO_ENDPOINT is required")
	}
	publisher := publish.New(objStore, cfg.Certificate.PublicBaseURL)

	binder, err := newBinder(cfg.Certificate)
	if err != nil {
		log.Fatalf("failed to load certificate template: %v", err)
	}

	renderOpts := []render.Option{
		render.WithTimeout(cfg.Renderer.Timeout()),
		render.WithLogger(logger),
	}
	if cfg.Certificate.Offline {
		renderOpts = append(renderOpts, render.WithDebugCopy(cfg.Certificate.DebugPath))
	}
	renderer := render.New(render.NewChromeEngine(cfg.Renderer), renderOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register service metrics: %v", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	certSvc := service.NewCertificateService(certRepo, binder, renderer, publisher,
		service.WithLocker(locker),
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithLocation(loc),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == middleware.MetricsPath
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.LoggerWithWriter(os.Stdout, loc))
	app.Use(promMiddleware.Handler())

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, certSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Warn("http shutdown failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// openRecordStore connects to Postgres and migrates it. Offline runs without DB_HOST keep records in memory.
func openRecordStore(ctx context.Context, cfg *config.AppConfig, loc *time.Location, logger *slog.Logger) (*sql.DB, repository.CertificateRepository) {
	if cfg.Database.Host == "" && cfg.Certificate.Offline {
		logger.Warn("DB_HOST not set; certificate records are kept in memory")
		return nil, memory.NewCertificateMemory()
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	return db, postgres.NewCertificatePostgres(db)
}

func openLocker(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) lock.Locker {
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if rdb == nil {
		logger.Info("REDIS_URL not set; issuance locks are process-local")
		return lock.NewLocal(cfg.Redis.LockWait)
	}
	return lock.NewRedis(rdb, cfg.Redis.LockTTL, cfg.Redis.LockWait)
}

func newBinder(c config.CertificateConfig) (*template.Binder, error) {
	if c.TemplateDir != "" {
		return template.NewFromDir(c.TemplateDir)
	}
	return template.NewEmbedded()
}
