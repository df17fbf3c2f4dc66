package application

import (
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// HoursInput is the opening window of one weekday in "HH:MM" form.
type HoursInput struct {
	Weekday time.Weekday
	Open    string
	Close   string
}

// ResourceInput captures caller provided resource fields. Weekdays absent
// from Hours are closed.
type ResourceInput struct {
	Name                   string
	Kind                   string
	Capacity               int
	Hours                  []HoursInput
	SlotGranularityMinutes int
	MinAdvanceMinutes      int
	MaxDurationMinutes     int
	RequiresApproval       bool
}

// UpdateResourceParams wraps the data required to update an existing resource.
type UpdateResourceParams struct {
	ResourceID string
	Input      ResourceInput
}

// AvailabilityParams selects the closed date range [From, To] of a resource.
type AvailabilityParams struct {
	ResourceID string
	From       time.Time
	To         time.Time
}

// Availability is the slot grid of a resource over a date range.
type Availability struct {
	Resource scheduler.Resource
	From     time.Time
	To       time.Time
	Days     []scheduler.DayAvailability
}

// RecurrenceInput describes how a booking repeats. Pattern is one of none,
// daily, weekly or monthly. Until and Count are mutually exclusive; when both
// are empty the series runs until the booking horizon.
type RecurrenceInput struct {
	Pattern  string
	Interval int
	Weekdays []time.Weekday
	Until    *time.Time
	Count    int
}

// BookingParams wraps the data required to validate or create a booking.
type BookingParams struct {
	ResourceID       string
	Start            time.Time
	End              time.Time
	ParticipantCount int
	Title            string
	Recurrence       *RecurrenceInput
	// AcceptPartial books the conflict-free occurrences of a recurring
	// request instead of rejecting the whole series.
	AcceptPartial bool
}

// BookingResult reports the outcome of a booking attempt.
type BookingResult struct {
	Decision scheduler.Decision
	// Reservations holds the stored parent followed by its children.
	Reservations []scheduler.Reservation
	// Skipped lists the occurrences left out of a partially accepted series.
	Skipped []scheduler.OccurrenceCheck
	// Alternatives suggests free intervals of the same length after a
	// rejected single booking.
	Alternatives []interval.Interval
}

// Accepted reports whether reservations were (or would be) stored.
func (r BookingResult) Accepted() bool {
	return r.Decision.Accepted
}

// CancelParams identifies the reservation to cancel. Cascade cancels the
// whole series the reservation belongs to.
type CancelParams struct {
	ReservationID string
	Cascade       bool
}

// ListReservationsParams filters reservations of a resource. Zero bounds are
// open.
type ListReservationsParams struct {
	ResourceID string
	From       time.Time
	To         time.Time
	Statuses   []scheduler.Status
}

// ReservationFilter narrows repository queries. Reservations overlapping
// [From, To) are selected; zero bounds are open.
type ReservationFilter struct {
	ResourceID string
	ParentID   string
	Statuses   []scheduler.Status
	From       time.Time
	To         time.Time
}
