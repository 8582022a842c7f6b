package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"statbridge/internal/fetch"
)

// Getter is the subset of fetch.Client adapters use.
type Getter interface {
	Get(ctx context.Context, req fetch.Request) (*fetch.Response, error)
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// NewLimiter builds a request pacer. A non-positive rate disables pacing.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

// Pace blocks until l admits one request.
func Pace(ctx context.Context, l *rate.Limiter, providerID string) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return NewProviderError(ErrorTimeout, providerID, "waiting for request slot", err)
	}
	return nil
}

// Clock lets adapters stamp RetrievedAt deterministically in tests.
type Clock func() time.Time
