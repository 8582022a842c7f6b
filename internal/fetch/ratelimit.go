package fetch

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitSnapshot is what an upstream reported about its quota on one
// response. Absent headers leave fields nil/empty.
type RateLimitSnapshot struct {
	Limit           *uint64           `json:"limit,omitempty"`
	Remaining       *uint64           `json:"remaining,omitempty"`
	Reset           *uint64           `json:"reset,omitempty"`
	WindowLimits    map[string]uint64 `json:"window_limits,omitempty"`
	WindowRemaining map[string]uint64 `json:"window_remaining,omitempty"`
	RetryAfterMS    *uint64           `json:"retry_after_ms,omitempty"`
}

// rate-limit header stems; the part of the header name after one of these
// decides the field. Anything before it (x-, vendor prefixes) is ignored.
var rateLimitStems = []string{"ratelimit-", "rate-limit-"}

// ExtractRateLimit scans headers case-insensitively for limit, remaining
// and reset headers (standard, X- and vendor prefixed, with optional
// per-window suffixes such as X-RateLimit-Limit-Minute) and Retry-After in
// delta-seconds or HTTP-date form. Returns nil when none are present.
func ExtractRateLimit(header http.Header, now time.Time) *RateLimitSnapshot {
	var snap RateLimitSnapshot
	found := false

	for name, values := range header {
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(name)
		value := strings.TrimSpace(values[0])

		if lower == "retry-after" {
			if ms, ok := parseRetryAfter(value, now); ok {
				snap.RetryAfterMS = &ms
				found = true
			}
			continue
		}

		field, window, ok := splitRateLimitHeader(lower)
		if !ok {
			continue
		}
		n, ok := parseLeadingUint(value)
		if !ok {
			continue
		}

		switch {
		case window == "" && field == "limit":
			snap.Limit = &n
		case window == "" && field == "remaining":
			snap.Remaining = &n
		case window == "" && field == "reset":
			snap.Reset = &n
		case field == "limit":
			if snap.WindowLimits == nil {
				snap.WindowLimits = make(map[string]uint64)
			}
			snap.WindowLimits[window] = n
		case field == "remaining":
			if snap.WindowRemaining == nil {
				snap.WindowRemaining = make(map[string]uint64)
			}
			snap.WindowRemaining[window] = n
		default:
			// per-window reset values have no slot in the snapshot
			continue
		}
		found = true
	}

	if !found {
		return nil
	}
	return &snap
}

// splitRateLimitHeader turns "x-ratelimit-remaining-minute" into
// ("remaining", "minute").
func splitRateLimitHeader(lower string) (field, window string, ok bool) {
	for _, stem := range rateLimitStems {
		idx := strings.Index(lower, stem)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(stem):]
		field, window, _ = strings.Cut(rest, "-")
		switch field {
		case "limit", "remaining", "reset":
			return field, window, true
		}
	}
	return "", "", false
}

// parseLeadingUint reads the leading integer of values such as "100",
// "100, 100;w=60" or "59.0".
func parseLeadingUint(value string) (uint64, bool) {
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(value[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseRetryAfter(value string, now time.Time) (uint64, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseUint(value, 10, 64); err == nil {
		return secs * 1000, true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	delta := at.Sub(now)
	if delta < 0 {
		delta = 0
	}
	return uint64(delta.Milliseconds()), true
}
