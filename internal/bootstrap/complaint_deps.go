package bootstrap

import (
	"strings"
	"time"

	"complaint_server/adapter/in/worker"
	"complaint_server/adapter/out/classifier"
	"complaint_server/adapter/out/geo"
	"complaint_server/adapter/out/persistence"
	"complaint_server/config"
	"complaint_server/core/port/out"
	complaintservice "complaint_server/core/service/complaint"
	"complaint_server/core/service/enrichment"
	"complaint_server/infra/database"
	"complaint_server/pkg/apperr"
	"complaint_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies wires every component of the service.
type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Outbound adapters
	ComplaintRepo out.ComplaintRepository
	Sentiment     *classifier.SentimentClient
	Spam          *classifier.SpamClient
	Category      *classifier.CategoryClient
	Geo           *geo.Client

	// Services
	Enricher         *enrichment.Enricher
	ComplaintService *complaintservice.Service

	// Background work
	ReconcilePool *worker.ReconcilePool
}

// NewDependencies constructs and wires all dependencies. The returned
// cleanup closes connections; the reconciliation pool lifecycle is
// managed by the API bootstrap.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, apperr.ConfigError("DATABASE_URL is required")
	}

	// Database (pgxpool for health checks and pooling control)
	logger.Debug("Connecting to database...")
	pool, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	// sqlx over the pgx stdlib driver for the repository
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Redis is optional: without it geolocation simply skips caching.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, geolocation cache disabled")
			redisClient = nil
		}
	}

	// Classifier clients, one pooled HTTP client each
	sentiment := classifier.NewSentimentClient(&classifier.SentimentConfig{
		URL:     cfg.SentimentAPIURL,
		APIKey:  cfg.SentimentAPIKey,
		Timeout: time.Duration(cfg.SentimentTimeoutSec) * time.Second,
	})
	spam := classifier.NewSpamClient(&classifier.SpamConfig{
		URL:       cfg.SpamAPIURL,
		APIKey:    cfg.SpamAPIKey,
		Threshold: cfg.SpamThreshold,
		Timeout:   time.Duration(cfg.SpamTimeoutSec) * time.Second,
	})
	category := classifier.NewCategoryClient(&classifier.CategoryConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
	})

	geoClient := geo.NewClient(&geo.Config{
		BaseURL:  cfg.IPAPIURL,
		Timeout:  time.Duration(cfg.GeoTimeoutSec) * time.Second,
		CacheTTL: time.Duration(cfg.GeoCacheTTLHour) * time.Hour,
	}, redisClient)

	// Core services
	repo := persistence.NewComplaintRepository(sqlDB)
	enricher := enrichment.NewEnricher(sentiment, spam, category)
	service := complaintservice.NewService(repo, enricher, spam, geoClient)

	cleanup := func() {
		sqlDB.Close()
		pool.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}

	return &Dependencies{
		Config:           cfg,
		DB:               pool,
		SQLDB:            sqlDB,
		Redis:            redisClient,
		ComplaintRepo:    repo,
		Sentiment:        sentiment,
		Spam:             spam,
		Category:         category,
		Geo:              geoClient,
		Enricher:         enricher,
		ComplaintService: service,
	}, cleanup, nil
}
