package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statbridge/internal/cache"
)

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns body and rate limit snapshot", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Header().Set("X-RateLimit-Remaining", "9")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		resp, err := NewClient().Fetch(ctx, Request{URL: srv.URL, Headers: map[string]string{"Accept": "application/json"}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
		require.NotNil(t, resp.RateLimit)
		assert.Equal(t, uint64(9), *resp.RateLimit.Remaining)
	})

	t.Run("non-2xx carries status reason and url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewClient().Fetch(ctx, Request{URL: srv.URL + "/data"})
		var he *HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
		assert.Equal(t, "Too Many Requests", he.Reason)
		assert.Equal(t, srv.URL+"/data", he.URL)
		require.NotNil(t, he.RateLimit)
		assert.Equal(t, uint64(3000), *he.RateLimit.RetryAfterMS)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("times out slow upstream", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := NewClient(WithTimeout(20*time.Millisecond)).Fetch(ctx, Request{URL: srv.URL})
		var he *HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, 0, he.StatusCode)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("malformed url is not retried", func(t *testing.T) {
		_, err := NewClient().FetchWithRetry(ctx, Request{URL: "://nope"})
		assert.True(t, IsNonRetryable(err))
	})
}

func TestFetchBodyLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/big" {
			_, _ = w.Write([]byte("0123456789A"))
			return
		}
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	c := NewClient(WithMaxBodyBytes(10), WithPolicy(fastPolicy(3)))

	resp, err := c.Fetch(context.Background(), Request{URL: srv.URL + "/fits"})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(resp.Body))

	calls.Store(0)
	_, err = c.FetchWithRetry(context.Background(), Request{URL: srv.URL + "/big"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.True(t, IsNonRetryable(err))
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusOK, he.StatusCode)
	assert.Contains(t, err.Error(), "exceeds 10 bytes")
	assert.Equal(t, int32(1), calls.Load(), "oversized bodies are not retried")
}

func TestFetchWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(WithPolicy(fastPolicy(3)))
	resp, err := c.FetchWithRetry(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetCachesResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := NewClient(WithCache(cache.NewMemoryStore(nil), time.Minute))
	ctx := context.Background()

	first, err := c.Get(ctx, Request{URL: srv.URL})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Get(ctx, Request{URL: srv.URL})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "payload", string(second.Body))
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Get(ctx, Request{URL: srv.URL, CacheTTL: -1})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "negative ttl bypasses the cache")
}

func TestGetCoalescesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte("shared"))
	}))
	defer srv.Close()

	c := NewClient()
	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			resp, err := c.Get(context.Background(), Request{URL: srv.URL})
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(resp.Body))
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheKeyIncludesAccept(t *testing.T) {
	a := CacheKey(Request{URL: "http://x", Headers: map[string]string{"accept": "application/json"}})
	b := CacheKey(Request{URL: "http://x", Headers: map[string]string{"Accept": "text/csv"}})
	assert.NotEqual(t, a, b)
}
