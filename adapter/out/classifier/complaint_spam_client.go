package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"complaint_server/pkg/apperr"
	"complaint_server/pkg/httputil"
	"complaint_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

const spamDependency = "spam_api"

// SpamClient wraps the external spam checker API. Every failure mode
// maps to false: an unclassifiable complaint is treated as not spam, and
// the deferred reconciliation re-check gets another chance at it.
type SpamClient struct {
	url        string
	apiKey     string
	threshold  int
	timeout    time.Duration
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// SpamConfig holds spam client configuration.
type SpamConfig struct {
	URL       string
	APIKey    string
	Threshold int
	Timeout   time.Duration
}

// NewSpamClient creates a spam client with its own pooled HTTP client
// and circuit breaker.
func NewSpamClient(cfg *SpamConfig) *SpamClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 3
	}

	httpCfg := httputil.SpamClientConfig()
	httpCfg.ResponseTimeout = timeout

	return &SpamClient{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		threshold:  threshold,
		timeout:    timeout,
		httpClient: httputil.NewOptimizedClient(httpCfg),
		cb:         newClassifierBreaker(spamDependency),
	}
}

// Classify reports whether the text is spam, falling back to false on
// any failure.
func (c *SpamClient) Classify(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		logger.WithDependency(spamDependency).Warn("empty text, skipping spam call")
		return false
	}
	if c.apiKey == "" {
		logger.WithDependency(spamDependency).Warn("spam API key not configured, using fallback")
		return false
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, text)
	})
	if err != nil {
		logDependencyFailure(spamDependency, err)
		return false
	}

	return result.(bool)
}

func (c *SpamClient) call(ctx context.Context, text string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.url + "?threshold=" + strconv.Itoa(c.threshold)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(text))
	if err != nil {
		return false, apperr.DependencyDegraded(spamDependency, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, apperr.Timeout(spamDependency)
		}
		return false, apperr.DependencyDegraded(spamDependency, err)
	}
	defer resp.Body.Close()

	if err := checkUpstreamStatus(spamDependency, resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return false, err
	}

	var payload struct {
		IsSpam *bool `json:"is_spam"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, apperr.MalformedResponse(spamDependency, err)
	}
	if payload.IsSpam == nil {
		return false, apperr.MalformedResponse(spamDependency, errors.New("missing is_spam field"))
	}

	return *payload.IsSpam, nil
}

// Ping performs a probe classification against the live dependency.
func (c *SpamClient) Ping(ctx context.Context) error {
	if c.apiKey == "" {
		return apperr.ConfigError("spam API key not configured")
	}
	_, err := c.call(ctx, "health check probe")
	return err
}
