package application

import (
	"context"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// ResourceReader loads a single resource.
type ResourceReader interface {
	GetResource(ctx context.Context, id string) (scheduler.Resource, error)
}

// ReservationReader lists reservations.
type ReservationReader interface {
	ListReservations(ctx context.Context, filter ReservationFilter) ([]scheduler.Reservation, error)
}

// ReservationRepository captures the persistence operations needed for bookings.
type ReservationRepository interface {
	ReservationReader
	// CreateReservations stores every reservation or none of them.
	CreateReservations(ctx context.Context, reservations []scheduler.Reservation) error
	GetReservation(ctx context.Context, id string) (scheduler.Reservation, error)
	// UpdateReservationStatus moves the listed reservations from one of the
	// from statuses to status, all or none.
	UpdateReservationStatus(ctx context.Context, ids []string, from []scheduler.Status, status scheduler.Status, updatedAt time.Time) error
}

// Locker serialises booking writes per resource. The returned release
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Recorder receives booking and availability measurements.
type Recorder interface {
	RecordBookingDecision(kind scheduler.ResourceKind, outcome, reason string)
	RecordOccurrences(count int)
	RecordAvailabilityLookup(cached bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordBookingDecision(scheduler.ResourceKind, string, string) {}
func (nopRecorder) RecordOccurrences(int)                                        {}
func (nopRecorder) RecordAvailabilityLookup(bool, time.Duration)                 {}

// EventPublisher is satisfied by the events package publishers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
