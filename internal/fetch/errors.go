package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrBodyTooLarge marks a 2xx response whose body exceeds the client's
// size cap. It is never retried.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPError is returned for non-2xx responses and transport failures.
// StatusCode is 0 for transport failures.
type HTTPError struct {
	StatusCode int
	Reason     string
	URL        string
	RateLimit  *RateLimitSnapshot
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, e.Reason)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func newStatusError(url string, resp *http.Response, snapshot *RateLimitSnapshot) *HTTPError {
	reason := http.StatusText(resp.StatusCode)
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		reason = text
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Reason:     reason,
		URL:        url,
		RateLimit:  snapshot,
	}
}

// IsRateLimited reports whether err signals upstream throttling: an HTTP
// 429 or any error whose message mentions "Too Many Requests".
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "too many requests")
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// NonRetryableError stops Retry immediately.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable marks err so Retry returns it without further attempts.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was marked with NonRetryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}
