package providers

import (
	"context"
	"log/slog"

	"statbridge/internal/series/models"
	"statbridge/pkg/platform/circuit"
)

// Guarded is a provider behind a circuit breaker. Only retryable failures
// (timeouts, outages, rate limits) count against the breaker; a provider
// that answers "not found" or with bad data is still reachable.
type Guarded struct {
	Provider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Guard wraps p with b.
func Guard(p Provider, b *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guarded{Provider: p, breaker: b, logger: logger}
}

// Fetch rejects fast while the breaker is open.
func (g *Guarded) Fetch(ctx context.Context, req FetchRequest) (models.Series, error) {
	if !g.breaker.Allow() {
		return models.Series{}, NewProviderError(ErrorProviderOutage, g.Key(), "skipped", ErrCircuitOpen)
	}

	series, err := g.Provider.Fetch(ctx, req)
	if err != nil && IsRetryable(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "provider circuit opened",
				"provider", g.Key(),
				"error", err,
			)
		}
		return series, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "provider circuit closed", "provider", g.Key())
	}
	return series, err
}

// Breaker exposes the breaker state for health reporting.
func (g *Guarded) Breaker() *circuit.Breaker {
	return g.breaker
}
