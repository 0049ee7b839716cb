package attrtrail

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldRejected is returned when a write names a field outside a fixed field set.
	ErrFieldRejected = errors.New("attrtrail: field rejected")

	// ErrTypeMismatch is returned when a value cannot be assigned to the field's type.
	ErrTypeMismatch = errors.New("attrtrail: type mismatch")

	// ErrUnregistered is returned when history is requested for an instance
	// that has no record, e.g. an Object that was not created by Type.New.
	ErrUnregistered = errors.New("attrtrail: unregistered instance")

	// ErrStoreConsistency signals that a write reached the store before the
	// instance was registered. It indicates a construction-order bug.
	ErrStoreConsistency = errors.New("attrtrail: store consistency violated")

	// ErrUnsupportedType is returned by Instrument for types it cannot track.
	ErrUnsupportedType = errors.New("attrtrail: unsupported type")
)

// FieldError describes a rejected write.
type FieldError struct {
	Kind   string // kind name of the instrumented type
	Field  string
	Reason string
	Value  any   // the value that was being written
	Err    error // ErrFieldRejected or ErrTypeMismatch
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("attrtrail: %s field %q: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("attrtrail: %s field %q: %s (got %T)", e.Kind, e.Field, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
