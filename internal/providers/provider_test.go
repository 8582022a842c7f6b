package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statbridge/internal/codelist"
	"statbridge/internal/cube"
	"statbridge/internal/fetch"
	"statbridge/internal/series/models"
)

type stubProvider struct {
	key    string
	health error
}

func (p stubProvider) Key() string { return p.key }
func (p stubProvider) Info() Info  { return Info{Key: p.key} }
func (p stubProvider) Fetch(context.Context, FetchRequest) (models.Series, error) {
	return models.Series{}, nil
}
func (p stubProvider) Health(context.Context) error { return p.health }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubProvider{key: "worldbank"}))
	require.NoError(t, r.Register(stubProvider{key: "eurostat", health: errors.New("down")}))
	assert.Error(t, r.Register(stubProvider{key: "eurostat"}))

	p, ok := r.Get("worldbank")
	require.True(t, ok)
	assert.Equal(t, "worldbank", p.Key())
	_, ok = r.Get("missing")
	assert.False(t, ok)

	keys := []string{}
	for _, p := range r.All() {
		keys = append(keys, p.Key())
	}
	assert.Equal(t, []string{"eurostat", "worldbank"}, keys)

	failed := r.Health(context.Background())
	assert.Len(t, failed, 1)
	assert.Contains(t, failed, "eurostat")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorCategory
		retryable bool
	}{
		{"decode", cube.Errorf(cube.FormatSDMX, "bad key"), ErrorBadData, false},
		{"unresolved", &codelist.UnresolvedStructureError{FlowID: "F"}, ErrorBadData, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrorTimeout, true},
		{"429", &fetch.HTTPError{StatusCode: http.StatusTooManyRequests}, ErrorRateLimited, true},
		{"404", &fetch.HTTPError{StatusCode: http.StatusNotFound}, ErrorNotFound, false},
		{"401", &fetch.HTTPError{StatusCode: http.StatusUnauthorized}, ErrorAuthentication, false},
		{"422", &fetch.HTTPError{StatusCode: http.StatusUnprocessableEntity}, ErrorContractMismatch, false},
		{"503", &fetch.HTTPError{StatusCode: http.StatusServiceUnavailable}, ErrorProviderOutage, true},
		{"transport", &fetch.HTTPError{Err: errors.New("connection refused")}, ErrorProviderOutage, true},
		{"oversized body", &fetch.HTTPError{StatusCode: http.StatusOK, Err: fetch.ErrBodyTooLarge}, ErrorBadData, false},
		{"other", errors.New("surprise"), ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize("p", "fetch", tt.err)
			assert.Equal(t, tt.want, GetCategory(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Normalize("p", "fetch", nil))

	already := NewProviderError(ErrorNotFound, "p", "gone", nil)
	assert.Same(t, already, Normalize("q", "other", already))
}

func TestProviderErrorMessage(t *testing.T) {
	err := NewProviderError(ErrorNotFound, "eurostat", "fetch dataset", errors.New("GET x: 404"))
	assert.Equal(t, "[not_found] fetch dataset: GET x: 404", err.Error())
	assert.Equal(t, "[timeout] slow", NewProviderError(ErrorTimeout, "p", "slow", nil).Error())
}

func TestExpandTemplate(t *testing.T) {
	got := ExpandTemplate("https://x/{flow}/{key}?geo={geo}&again={geo}", map[string]string{
		"flow": "DF", "key": "A.SE", "geo": "SE",
	})
	assert.Equal(t, "https://x/DF/A.SE?geo=SE&again=SE", got)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	l := NewLimiter(10, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
	assert.NoError(t, Pace(context.Background(), nil, "p"))
	assert.NoError(t, Pace(context.Background(), l, "p"))
}
