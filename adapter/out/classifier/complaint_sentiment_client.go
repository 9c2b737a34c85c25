package classifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"complaint_server/core/domain"
	"complaint_server/pkg/apperr"
	"complaint_server/pkg/httputil"
	"complaint_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

const sentimentDependency = "sentiment_api"

// SentimentClient wraps the external sentiment analysis API. Every
// failure mode maps to domain.SentimentUnknown; Classify never surfaces
// an error to the enrichment pipeline.
type SentimentClient struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// SentimentConfig holds sentiment client configuration.
type SentimentConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewSentimentClient creates a sentiment client with its own pooled
// HTTP client and circuit breaker.
func NewSentimentClient(cfg *SentimentConfig) *SentimentClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpCfg := httputil.SentimentClientConfig()
	httpCfg.ResponseTimeout = timeout

	return &SentimentClient{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: httputil.NewOptimizedClient(httpCfg),
		cb:         newClassifierBreaker(sentimentDependency),
	}
}

// Classify resolves the sentiment of the text, falling back to
// domain.SentimentUnknown on any failure.
func (c *SentimentClient) Classify(ctx context.Context, text string) domain.Sentiment {
	text = strings.TrimSpace(text)
	if text == "" {
		logger.WithDependency(sentimentDependency).Warn("empty text, skipping sentiment call")
		return domain.SentimentUnknown
	}
	if c.apiKey == "" {
		logger.WithDependency(sentimentDependency).Warn("sentiment API key not configured, using fallback")
		return domain.SentimentUnknown
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, text)
	})
	if err != nil {
		logDependencyFailure(sentimentDependency, err)
		return domain.SentimentUnknown
	}

	return result.(domain.Sentiment)
}

func (c *SentimentClient) call(ctx context.Context, text string) (domain.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", apperr.DependencyDegraded(sentimentDependency, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", apperr.DependencyDegraded(sentimentDependency, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.Timeout(sentimentDependency)
		}
		return "", apperr.DependencyDegraded(sentimentDependency, err)
	}
	defer resp.Body.Close()

	if err := checkUpstreamStatus(sentimentDependency, resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return "", err
	}

	var payload struct {
		Sentiment string `json:"sentiment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", apperr.MalformedResponse(sentimentDependency, err)
	}

	label := strings.ToLower(strings.TrimSpace(payload.Sentiment))
	if !domain.ValidSentiment(label) || label == string(domain.SentimentUnknown) {
		// Unrecognized labels are treated the same as transport failures.
		return "", apperr.MalformedResponse(sentimentDependency, errors.New("unrecognized sentiment label: "+label))
	}

	return domain.Sentiment(label), nil
}

// Ping performs a probe classification against the live dependency.
func (c *SentimentClient) Ping(ctx context.Context) error {
	if c.apiKey == "" {
		return apperr.ConfigError("sentiment API key not configured")
	}
	_, err := c.call(ctx, "health check probe")
	return err
}
