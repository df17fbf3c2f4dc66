package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

// ErrInvalidResource indicates a resource definition the engine cannot schedule against.
var ErrInvalidResource = errors.New("scheduler: invalid resource")

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Blocks reports whether a reservation in this status occupies its interval.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Blocks() || s.Terminal()
}

// ResourceKind classifies bookable spaces.
type ResourceKind string

const (
	KindRoom   ResourceKind = "room"
	KindDesk   ResourceKind = "desk"
	KindStudio ResourceKind = "studio"
)

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindRoom, KindDesk, KindStudio:
		return true
	}
	return false
}

// ClockTime is a wall-clock time of day in minutes after midnight. 24:00 is
// allowed as a closing time.
type ClockTime int

const endOfDay ClockTime = 24 * 60

// Clock builds a ClockTime from hours and minutes.
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM".
func ParseClock(value string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(hh) == 0 || len(mm) != 2 {
		return 0, fmt.Errorf("scheduler: time of day %q must use HH:MM", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("scheduler: time of day %q must use HH:MM", value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 || hour < 0 {
		return 0, fmt.Errorf("scheduler: time of day %q is out of range", value)
	}
	c := Clock(hour, minute)
	if c > endOfDay {
		return 0, fmt.Errorf("scheduler: time of day %q is out of range", value)
	}
	return c, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant at this time of day on date's calendar day.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// DailyHours is the [Open, Close) window for one weekday. The zero value is
// a closed day.
type DailyHours struct {
	Open  ClockTime
	Close ClockTime
}

// Closed reports whether the day has no bookable window.
func (h DailyHours) Closed() bool {
	return h.Close <= h.Open
}

// Window returns the opening interval on date.
func (h DailyHours) Window(date time.Time) (interval.Interval, bool) {
	if h.Closed() {
		return interval.Interval{}, false
	}
	iv, err := interval.New(h.Open.On(date), h.Close.On(date))
	if err != nil {
		return interval.Interval{}, false
	}
	return iv, true
}

// OperatingHours holds one window per weekday, indexed by time.Weekday.
type OperatingHours [7]DailyHours

// UniformHours opens every day of the week with the same window.
func UniformHours(open, close ClockTime) OperatingHours {
	var hours OperatingHours
	for i := range hours {
		hours[i] = DailyHours{Open: open, Close: close}
	}
	return hours
}

// For returns the window for the given weekday.
func (o OperatingHours) For(day time.Weekday) DailyHours {
	return o[day]
}

// Resource is a bookable space together with its booking rules.
type Resource struct {
	ID               string
	Name             string
	Kind             ResourceKind
	Capacity         int
	Hours            OperatingHours
	SlotGranularity  time.Duration
	MinAdvance       time.Duration
	MaxDuration      time.Duration
	RequiresApproval bool
}

// Validate checks the invariants the engine relies on.
func (r Resource) Validate() error {
	switch {
	case r.Capacity < 1:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidResource)
	case r.SlotGranularity < time.Minute:
		return fmt.Errorf("%w: slot granularity must be at least one minute", ErrInvalidResource)
	case r.MinAdvance < 0:
		return fmt.Errorf("%w: minimum advance notice cannot be negative", ErrInvalidResource)
	case r.MaxDuration < 0:
		return fmt.Errorf("%w: maximum duration cannot be negative", ErrInvalidResource)
	}
	for day, hours := range r.Hours {
		if hours.Open < 0 || hours.Close > endOfDay {
			return fmt.Errorf("%w: hours for %s are out of range", ErrInvalidResource, time.Weekday(day))
		}
	}
	return nil
}

// Reservation is a booking of a resource over an interval.
type Reservation struct {
	ID                 string
	ResourceID         string
	Interval           interval.Interval
	ParticipantCount   int
	Status             Status
	RecurrenceParentID string
	Title              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Blocks reports whether the reservation takes part in conflict detection.
func (r Reservation) Blocks() bool {
	return r.Status.Blocks()
}

// SeriesID returns the identifier shared by every occurrence of a series.
func (r Reservation) SeriesID() string {
	if r.RecurrenceParentID != "" {
		return r.RecurrenceParentID
	}
	return r.ID
}

// AvailabilitySlot is a derived view of one slot. It is never persisted.
type AvailabilitySlot struct {
	Interval  interval.Interval
	Available bool
	Occupying *Reservation
}

// DayAvailability groups the slots of one calendar day.
type DayAvailability struct {
	Date  time.Time
	Slots []AvailabilitySlot
}
