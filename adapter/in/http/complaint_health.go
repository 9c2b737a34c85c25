package http

import (
	"context"
	"sync"
	"time"

	"complaint_server/core/port/out"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Prober checks liveness of one external dependency.
type Prober interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports aggregate service health plus per-dependency
// status. The classifier and geolocation checks perform a real probe
// call against each dependency.
type HealthHandler struct {
	db        *pgxpool.Pool
	sentiment out.SentimentClassifier
	category  out.CategoryClassifier
	geo       out.GeoResolver
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *pgxpool.Pool, sentiment out.SentimentClassifier, category out.CategoryClassifier, geo out.GeoResolver) *HealthHandler {
	return &HealthHandler{
		db:        db,
		sentiment: sentiment,
		category:  category,
		geo:       geo,
	}
}

// Register registers health routes
func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
}

const (
	checkOK       = "ok"
	checkDegraded = "degraded"
	checkError    = "error"
)

// Health runs all dependency checks concurrently. A degraded classifier
// or geolocation dependency never fails the endpoint; only a dead store
// does, since it is the one dependency requests cannot survive without.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, 4)
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(name, status string) {
		mu.Lock()
		checks[name] = status
		mu.Unlock()
	}

	probes := map[string]Prober{
		"sentiment_api":   h.sentiment,
		"openai_api":      h.category,
		"geolocation_api": h.geo,
	}
	for name, probe := range probes {
		if probe == nil {
			record(name, checkDegraded+": not configured")
			continue
		}
		wg.Add(1)
		go func(name string, probe Prober) {
			defer wg.Done()
			if err := probe.Ping(ctx); err != nil {
				record(name, checkDegraded+": "+err.Error())
			} else {
				record(name, checkOK)
			}
		}(name, probe)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if h.db == nil {
			record("database", checkError+": not configured")
			return
		}
		if err := h.db.Ping(ctx); err != nil {
			record("database", checkError+": "+err.Error())
		} else {
			record("database", checkOK)
		}
	}()

	wg.Wait()

	status := checkOK
	statusCode := fiber.StatusOK
	for name, result := range checks {
		if result == checkOK {
			continue
		}
		if name == "database" {
			status = checkError
			statusCode = fiber.StatusServiceUnavailable
			break
		}
		status = checkDegraded
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
