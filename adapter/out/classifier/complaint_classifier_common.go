// Package classifier contains the outbound adapters for the three
// external enrichment dependencies. Each adapter owns a pooled HTTP
// client and absorbs its full failure taxonomy, so callers only ever see
// a valid label.
package classifier

import (
	"time"

	"complaint_server/pkg/apperr"
	"complaint_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// newClassifierBreaker builds a circuit breaker for one classifier
// dependency. An open breaker short-circuits the call, which the adapter
// maps to its fallback label like any other failure.
func newClassifierBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithDependency(name).Warn("circuit breaker state changed: %s -> %s", from.String(), to.String())
		},
	})
}

// checkUpstreamStatus maps a non-2xx status to the matching dependency
// error.
func checkUpstreamStatus(dependency string, statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == 401 || statusCode == 403:
		return apperr.AuthRejected(dependency)
	case statusCode == 429:
		return apperr.RateLimited(dependency)
	default:
		return apperr.UpstreamError(dependency, statusCode)
	}
}

// logDependencyFailure records a classifier failure with enough context
// to diagnose an outage without ever failing the request.
func logDependencyFailure(dependency string, err error) {
	appErr := apperr.AsAppError(err)
	logger.WithDependency(dependency).
		WithField("error_code", appErr.Code).
		WithError(err).
		Warn("classification failed, using fallback label")
}
