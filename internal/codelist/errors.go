package codelist

import (
	"errors"
	"fmt"
)

// UnresolvedStructureError reports a structure or codelist reference that
// cannot be parsed, or a codelist the structure definition does not carry.
type UnresolvedStructureError struct {
	FlowID string
	Reason string
	Err    error
}

func (e *UnresolvedStructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve structure for %s: %s: %v", e.FlowID, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve structure for %s: %s", e.FlowID, e.Reason)
}

func (e *UnresolvedStructureError) Unwrap() error {
	return e.Err
}

func unresolved(flowID, reason string, args ...any) *UnresolvedStructureError {
	return &UnresolvedStructureError{FlowID: flowID, Reason: fmt.Sprintf(reason, args...)}
}

// IsUnresolved reports whether err is or wraps an UnresolvedStructureError.
func IsUnresolved(err error) bool {
	var ue *UnresolvedStructureError
	return errors.As(err, &ue)
}
