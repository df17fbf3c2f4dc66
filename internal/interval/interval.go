// Package interval provides the half-open time range used throughout the
// reservation engine.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when an interval would not satisfy start < end.
var ErrInvalidInterval = errors.New("interval: start must be before end")

// Interval is a half-open time range [start, end). The zero value is not a
// valid interval; construct values with New.
type Interval struct {
	start time.Time
	end   time.Time
}

// New constructs an interval, rejecting empty, inverted, or unbounded ranges.
func New(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, fmt.Errorf("%w: both bounds are required", ErrInvalidInterval)
	}
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: %s is not before %s", ErrInvalidInterval,
			start.Format(time.DateTime), end.Format(time.DateTime))
	}
	return Interval{start: start, end: end}, nil
}

// MustNew is like New but panics on malformed input. It is intended for
// literals in tests and for ranges derived from an already valid interval.
func MustNew(start, end time.Time) Interval {
	iv, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// WithDuration constructs [start, start+d).
func WithDuration(start time.Time, d time.Duration) (Interval, error) {
	return New(start, start.Add(d))
}

func (i Interval) Start() time.Time { return i.start }

func (i Interval) End() time.Time { return i.end }

// IsZero reports whether the interval was never constructed.
func (i Interval) IsZero() bool {
	return i.start.IsZero() && i.end.IsZero()
}

// Duration returns end - start.
func (i Interval) Duration() time.Duration {
	return i.end.Sub(i.start)
}

// Minutes returns the length of the interval in whole minutes.
func (i Interval) Minutes() int {
	return int(i.Duration() / time.Minute)
}

// Overlaps reports whether the two ranges share at least one instant.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i, other)
}

// Overlaps reports whether a and b intersect under half-open semantics.
func Overlaps(a, b Interval) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// Contains reports whether point lies within [start, end).
func (i Interval) Contains(point time.Time) bool {
	return !point.Before(i.start) && point.Before(i.end)
}

// Within reports whether the receiver lies entirely inside outer.
func (i Interval) Within(outer Interval) bool {
	return !i.start.Before(outer.start) && !i.end.After(outer.end)
}

// Shift returns the interval moved to begin at start, keeping its duration.
func (i Interval) Shift(start time.Time) Interval {
	return Interval{start: start, end: start.Add(i.Duration())}
}

// Equal reports whether both bounds denote the same instants.
func (i Interval) Equal(other Interval) bool {
	return i.start.Equal(other.start) && i.end.Equal(other.end)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.start.Format(time.DateTime), i.end.Format(time.DateTime))
}
