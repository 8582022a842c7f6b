package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"statbridge/internal/codelist"
	"statbridge/internal/cube"
	"statbridge/internal/fetch"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned a malformed payload
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates the provider rejected the query shape
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the requested dataset doesn't exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool // Whether this error is worth retrying
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Normalize wraps err in a ProviderError whose category reflects what
// failed: payload decoding, upstream status, timeout or transport.
// Errors that are already ProviderErrors pass through.
func Normalize(providerID, message string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return NewProviderError(categorize(err), providerID, message, err)
}

func categorize(err error) ErrorCategory {
	if cube.IsDecodeError(err) || codelist.IsUnresolved(err) || errors.Is(err, fetch.ErrBodyTooLarge) {
		return ErrorBadData
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	if fetch.IsRateLimited(err) {
		return ErrorRateLimited
	}
	var he *fetch.HTTPError
	if !errors.As(err, &he) {
		return ErrorInternal
	}
	switch status := he.StatusCode; {
	case status == 0 || status >= http.StatusInternalServerError:
		return ErrorProviderOutage
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuthentication
	case status >= http.StatusBadRequest:
		return ErrorContractMismatch
	default:
		return ErrorInternal
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// Sentinel errors for common cases
var (
	ErrProviderNotFound = errors.New("provider not found")
	// ErrCircuitOpen is returned while a provider's breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit open")
)
