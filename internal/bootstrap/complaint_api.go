package bootstrap

import (
	"os"
	"strings"
	"time"

	httpin "complaint_server/adapter/in/http"
	"complaint_server/adapter/in/worker"
	"complaint_server/config"
	"complaint_server/infra/middleware"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
)

// NewAPI assembles the Fiber application, starts the reconciliation
// pool and returns a cleanup that tears both down.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "complaints-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	// Reconciliation pool; the complaint service schedules jobs on it
	// after each successful creation.
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	reconcilePool := worker.NewReconcilePool(deps.ComplaintService, &worker.PoolConfig{
		Workers:    cfg.ReconcileWorkers,
		QueueSize:  cfg.ReconcileQueueSize,
		JobTimeout: time.Duration(cfg.ReconcileTimeoutSec) * time.Second,
	}, zlog)
	if err := reconcilePool.Start(); err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.ReconcilePool = reconcilePool
	deps.ComplaintService.SetScheduler(reconcilePool)

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		// Category path segments arrive percent-encoded (Cyrillic labels).
		UnescapePath: true,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json: faster JSON serialization than encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.ClientIP())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	// Health check with live dependency probes
	healthHandler := httpin.NewHealthHandler(deps.DB, deps.Sentiment, deps.Category, deps.Geo)
	healthHandler.Register(app)

	// Complaint routes, with submission rate limiting in front of the
	// write path. Without Redis the limiter allows everything.
	limiter := ratelimit.NewSlidingWindowLimiter(deps.Redis, cfg.SubmitRateLimit, cfg.SubmitRateWindow)
	complaintHandler := httpin.NewComplaintHandler(deps.ComplaintService)
	complaintHandler.Register(app, middleware.SubmitRateLimit(limiter))

	apiCleanup := func() {
		reconcilePool.Stop(cfg.ShutdownTimeout)
		cleanup()
	}

	return app, apiCleanup, nil
}
