package persistence

import (
	"context"
	"time"
)

// ResourceRepository exposes CRUD operations for the resource catalog.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries. Zero fields do not filter.
// StartsBefore and EndsAfter select reservations overlapping
// [EndsAfter, StartsBefore).
type ReservationFilter struct {
	ResourceID   string
	ParentID     string
	Statuses     []string
	EndsAfter    *time.Time
	StartsBefore *time.Time
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	// CreateReservations stores every reservation or none of them.
	CreateReservations(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// UpdateReservationStatus moves every listed reservation from one of the
	// from statuses to status. A record in any other status aborts the whole
	// update with ErrStatusMismatch. An empty from accepts any status.
	UpdateReservationStatus(ctx context.Context, ids []string, from []string, status string, updatedAt time.Time) error
}
