package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statbridge/internal/series/models"
	"statbridge/pkg/platform/circuit"
)

type scriptedProvider struct {
	stubProvider
	errs  []error
	calls int
}

func (p *scriptedProvider) Fetch(context.Context, FetchRequest) (models.Series, error) {
	err := p.errs[p.calls%len(p.errs)]
	p.calls++
	return models.Series{}, err
}

func TestGuardOpensOnRetryableFailures(t *testing.T) {
	outage := NewProviderError(ErrorProviderOutage, "eurostat", "status 503", nil)
	inner := &scriptedProvider{stubProvider: stubProvider{key: "eurostat"}, errs: []error{outage}}
	g := Guard(inner, circuit.New("eurostat", circuit.WithFailureThreshold(2)), nil)

	for range 2 {
		_, err := g.Fetch(context.Background(), FetchRequest{})
		require.ErrorIs(t, err, outage)
	}
	_, err := g.Fetch(context.Background(), FetchRequest{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "eurostat", g.Key())
}

func TestGuardIgnoresNonRetryableFailures(t *testing.T) {
	notFound := NewProviderError(ErrorNotFound, "oecd", "status 404", nil)
	inner := &scriptedProvider{stubProvider: stubProvider{key: "oecd"}, errs: []error{notFound}}
	g := Guard(inner, circuit.New("oecd", circuit.WithFailureThreshold(1)), nil)

	for range 3 {
		_, err := g.Fetch(context.Background(), FetchRequest{})
		assert.True(t, errors.Is(err, notFound))
	}
	assert.False(t, g.Breaker().IsOpen())
	assert.Equal(t, 3, inner.calls)
}

func TestGuardCountsOnlyRetryableCategories(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		counts   bool
	}{
		{ErrorTimeout, true},
		{ErrorProviderOutage, true},
		{ErrorRateLimited, true},
		{ErrorNotFound, false},
		{ErrorBadData, false},
		{ErrorContractMismatch, false},
		{ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			failure := NewProviderError(tt.category, "scb", "upstream said no", nil)
			inner := &scriptedProvider{stubProvider: stubProvider{key: "scb"}, errs: []error{failure}}
			g := Guard(inner, circuit.New("scb", circuit.WithFailureThreshold(1)), nil)

			_, err := g.Fetch(context.Background(), FetchRequest{})
			require.ErrorIs(t, err, failure)
			assert.Equal(t, tt.counts, g.Breaker().IsOpen())
		})
	}
}

func TestGuardHalfOpenTrialCall(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	outage := NewProviderError(ErrorProviderOutage, "oecd", "status 503", nil)
	inner := &scriptedProvider{stubProvider: stubProvider{key: "oecd"}, errs: []error{outage, outage, nil}}
	g := Guard(inner, circuit.New("oecd",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(30*time.Second),
		circuit.WithClock(clock),
	), nil)
	ctx := context.Background()

	_, err := g.Fetch(ctx, FetchRequest{})
	require.ErrorIs(t, err, outage)
	require.True(t, g.Breaker().IsOpen())

	_, err = g.Fetch(ctx, FetchRequest{})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls, "open breaker does not reach the provider")

	now = now.Add(30 * time.Second)
	_, err = g.Fetch(ctx, FetchRequest{})
	require.ErrorIs(t, err, outage, "failed trial call")
	assert.Equal(t, 2, inner.calls)
	_, err = g.Fetch(ctx, FetchRequest{})
	require.ErrorIs(t, err, ErrCircuitOpen, "failed trial call starts a new cooldown")

	now = now.Add(30 * time.Second)
	_, err = g.Fetch(ctx, FetchRequest{})
	require.NoError(t, err, "successful trial call")
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, circuit.StateClosed, g.Breaker().State())

	_, err = g.Fetch(ctx, FetchRequest{})
	assert.ErrorIs(t, err, outage, "closed breaker passes calls through again")
	assert.Equal(t, 4, inner.calls)
}
