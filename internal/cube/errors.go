// Package cube holds what the two cube decoders share: the DecodeError
// taxonomy and JSON Schema validation of raw payloads.
package cube

import (
	"errors"
	"fmt"
)

// Format names a supported cube wire encoding.
type Format string

const (
	FormatJSONStat Format = "json-stat"
	FormatSDMX     Format = "sdmx-json"
)

// DecodeError reports a malformed cube payload: missing dimension
// metadata, size/value-count mismatch, unparseable JSON. It is never
// retried.
type DecodeError struct {
	Format Format
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Format, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Errorf builds a DecodeError with a formatted reason.
func Errorf(format Format, reason string, args ...any) *DecodeError {
	return &DecodeError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}

// Wrap builds a DecodeError around a cause.
func Wrap(format Format, err error, reason string) *DecodeError {
	return &DecodeError{Format: format, Reason: reason, Err: err}
}

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
