package scheduler

import (
	"errors"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/recurrence"
)

// ErrEmptySeries indicates a recurrence rule that produced no occurrence.
var ErrEmptySeries = errors.New("scheduler: recurrence produced no occurrences")

// Request is a candidate booking. A zero Recurrence books Interval once.
type Request struct {
	ResourceID       string
	Interval         interval.Interval
	Recurrence       recurrence.Rule
	ParticipantCount int
	// Cutoff is the hard stop for recurrence expansion.
	Cutoff time.Time
}

// Rule returns the recurrence rule, defaulting to a single booking.
func (r Request) Rule() recurrence.Rule {
	if r.Recurrence.Pattern == nil {
		return recurrence.Single()
	}
	return r.Recurrence
}

// Decision is the outcome of validating a request.
type Decision struct {
	Accepted    bool
	Status      Status
	Occurrences []interval.Interval
	Checks      []OccurrenceCheck
	Truncated   bool
	Rejection   *Rejection
}

// Validator applies resource rules to booking requests. It never writes.
type Validator struct {
	engine *recurrence.Engine
}

// NewValidator constructs a validator expanding recurrences with engine.
func NewValidator(engine *recurrence.Engine) *Validator {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	return &Validator{engine: engine}
}

// Expand returns the occurrences the request would book.
func (v *Validator) Expand(req Request) (recurrence.Expansion, error) {
	if req.Interval.IsZero() {
		return recurrence.Expansion{}, interval.ErrInvalidInterval
	}
	expansion, err := v.engine.Expand(req.Interval, req.Rule(), req.Cutoff)
	if err != nil {
		return recurrence.Expansion{}, err
	}
	if len(expansion.Occurrences) == 0 {
		return recurrence.Expansion{}, ErrEmptySeries
	}
	return expansion, nil
}

// Validate checks capacity, advance notice, maximum duration and conflicts,
// in that order, stopping at the first failure. A refused request yields a
// Decision with a Rejection and a nil error; errors are reserved for
// malformed input.
func (v *Validator) Validate(resource Resource, req Request, existing []Reservation, now time.Time) (Decision, error) {
	if err := resource.Validate(); err != nil {
		return Decision{}, err
	}
	expansion, err := v.Expand(req)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Occurrences: expansion.Occurrences,
		Truncated:   expansion.Truncated,
	}

	if req.ParticipantCount < 1 || req.ParticipantCount > resource.Capacity {
		decision.Rejection = &Rejection{
			Kind:         RejectionCapacityExceeded,
			Capacity:     resource.Capacity,
			Participants: req.ParticipantCount,
		}
		return decision, nil
	}

	first := expansion.Occurrences[0]
	if notice := first.Start().Sub(now); notice < resource.MinAdvance {
		decision.Rejection = &Rejection{
			Kind:           RejectionInsufficientAdvanceNotice,
			RequiredNotice: resource.MinAdvance,
			Notice:         notice,
		}
		return decision, nil
	}

	if d := req.Interval.Duration(); resource.MaxDuration > 0 && d > resource.MaxDuration {
		decision.Rejection = &Rejection{
			Kind:        RejectionDurationExceeded,
			MaxDuration: resource.MaxDuration,
			Duration:    d,
		}
		return decision, nil
	}

	decision.Checks = CheckOccurrences(expansion.Occurrences, resource.ID, existing)
	var blocked []OccurrenceCheck
	for _, check := range decision.Checks {
		if !check.Free() {
			blocked = append(blocked, check)
		}
	}
	if len(blocked) > 0 {
		decision.Rejection = &Rejection{Kind: RejectionResourceConflict, Conflicts: blocked}
		return decision, nil
	}

	decision.Accepted = true
	decision.Status = StatusConfirmed
	if resource.RequiresApproval {
		decision.Status = StatusPending
	}
	return decision, nil
}
