package scheduler

import (
	"fmt"
	"time"
)

// RejectionKind names the business rule a booking request failed.
type RejectionKind string

const (
	RejectionCapacityExceeded          RejectionKind = "capacity_exceeded"
	RejectionInsufficientAdvanceNotice RejectionKind = "insufficient_advance_notice"
	RejectionDurationExceeded          RejectionKind = "duration_exceeded"
	RejectionResourceConflict          RejectionKind = "resource_conflict"
)

// Rejection explains why a booking request was refused. Only the fields
// relevant to Kind are populated.
type Rejection struct {
	Kind RejectionKind

	Capacity     int
	Participants int

	RequiredNotice time.Duration
	Notice         time.Duration

	MaxDuration time.Duration
	Duration    time.Duration

	// Conflicts lists only the occurrences that are blocked.
	Conflicts []OccurrenceCheck
}

// Error lets a rejection travel through error-returning call chains.
func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return "booking rejected: " + r.Message()
}

// Message is a human readable explanation of the rejection.
func (r *Rejection) Message() string {
	switch r.Kind {
	case RejectionCapacityExceeded:
		if r.Participants < 1 {
			return fmt.Sprintf("participant count must be between 1 and %d", r.Capacity)
		}
		return fmt.Sprintf("%d participants exceed the capacity of %d", r.Participants, r.Capacity)
	case RejectionInsufficientAdvanceNotice:
		return fmt.Sprintf("bookings require %s advance notice, got %s", formatMinutes(r.RequiredNotice), formatMinutes(r.Notice))
	case RejectionDurationExceeded:
		return fmt.Sprintf("booking lasts %s, the maximum is %s", formatMinutes(r.Duration), formatMinutes(r.MaxDuration))
	case RejectionResourceConflict:
		return fmt.Sprintf("%d of the requested occurrences overlap existing reservations", len(r.Conflicts))
	default:
		return string(r.Kind)
	}
}

// ConflictingIDs returns the distinct ids of the blocking reservations in
// first-seen order.
func (r *Rejection) ConflictingIDs() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, check := range r.Conflicts {
		for _, c := range check.Conflicts {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func formatMinutes(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d/time.Minute))
}
