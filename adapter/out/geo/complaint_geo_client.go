// Package geo resolves client IPs to human-readable locations through
// the ip-api.com service, with a Redis cache in front of it.
package geo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"complaint_server/pkg/httputil"
	"complaint_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const geoDependency = "geolocation_api"

// Client resolves IP geolocation. Resolution is strictly best-effort:
// any failure yields an absent location and never blocks the request.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
}

// Config holds geolocation client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewClient creates a geolocation client. cache may be nil, in which
// case every lookup goes to the upstream service.
func NewClient(cfg *Config, cache *redis.Client) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	httpCfg := httputil.GeoClientConfig()
	httpCfg.ResponseTimeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		httpClient: httputil.NewOptimizedClient(httpCfg),
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Resolve maps an IP to "city, region, country". The second return is
// false when no location could be resolved.
func (c *Client) Resolve(ctx context.Context, ip string) (string, bool) {
	ip = strings.TrimSpace(ip)
	if ip == "" || !isPublicIP(ip) {
		return "", false
	}

	cacheKey := "geo:" + ip
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, true
		}
	}

	location, ok := c.lookup(ctx, ip)
	if !ok {
		return "", false
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, location, c.cacheTTL).Err(); err != nil {
			logger.WithDependency(geoDependency).WithError(err).Debug("failed to cache geolocation")
		}
	}

	return location, true
}

type geoResponse struct {
	Status     string `json:"status"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func (c *Client) lookup(ctx context.Context, ip string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip, nil)
	if err != nil {
		logger.WithDependency(geoDependency).WithError(err).Warn("failed to build geolocation request")
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithDependency(geoDependency).WithError(err).Warn("geolocation lookup failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.WithDependency(geoDependency).
			WithField("status_code", resp.StatusCode).
			Warn("geolocation lookup returned non-OK status")
		return "", false
	}

	var payload geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logger.WithDependency(geoDependency).WithError(err).Warn("unparseable geolocation response")
		return "", false
	}
	if payload.Status != "success" {
		return "", false
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{payload.City, payload.RegionName, payload.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", false
	}

	return strings.Join(parts, ", "), true
}

var errGeoUnavailable = errors.New("geolocation service unavailable")

// Ping probes the upstream service with a well-known public address.
func (c *Client) Ping(ctx context.Context) error {
	if _, ok := c.lookup(ctx, "8.8.8.8"); !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errGeoUnavailable
	}
	return nil
}

// isPublicIP filters out addresses that the upstream cannot resolve:
// loopback, private ranges and link-local.
func isPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsLinkLocalUnicast() && !parsed.IsUnspecified()
}
