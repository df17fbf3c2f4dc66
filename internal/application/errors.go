package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/recurrence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource or reservation does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when an identifier is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrResourceInUse is returned when deleting a resource that still has reservations.
	ErrResourceInUse = errors.New("application: resource has reservations")
	// ErrInvalidTransition is returned when a reservation cannot move to the requested status.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrLockUnavailable is returned when the per-resource booking lock cannot be acquired.
	ErrLockUnavailable = errors.New("application: resource lock unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v.FieldErrors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// engineValidationError converts malformed-input errors raised by the
// scheduling engine into a ValidationError. Other errors are returned as is.
func engineValidationError(err error) error {
	if err == nil {
		return nil
	}
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, interval.ErrInvalidInterval):
		vErr.add("end", "end must be after start")
	case errors.Is(err, recurrence.ErrInvalidPattern):
		vErr.add("recurrence", trimPrefix(err))
	case errors.Is(err, recurrence.ErrInvalidEnd):
		vErr.add("recurrence.end", trimPrefix(err))
	case errors.Is(err, recurrence.ErrMissingCutoff), errors.Is(err, recurrence.ErrInvalidCutoff):
		vErr.add("recurrence", "open-ended recurrence requires a cutoff after the first occurrence")
	case errors.Is(err, scheduler.ErrEmptySeries):
		vErr.add("recurrence", "recurrence produces no occurrences before the horizon")
	case errors.Is(err, scheduler.ErrInvalidRange):
		vErr.add("to", "to must not be before from")
	case errors.Is(err, scheduler.ErrInvalidResource):
		vErr.add("resource", trimPrefix(err))
	default:
		return err
	}
	return vErr
}

// trimPrefix drops the "package: " prefix of a wrapped engine error.
func trimPrefix(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
