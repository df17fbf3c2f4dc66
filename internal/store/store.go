// Package store adapts the persistence repositories to the engine model used
// by the application services.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// Backend is satisfied by both the memory and the sqlite storage.
type Backend interface {
	persistence.ResourceRepository
	persistence.ReservationRepository
}

// Resources implements application.ResourceRepository.
type Resources struct {
	backend persistence.ResourceRepository
	now     func() time.Time
}

func NewResources(backend persistence.ResourceRepository, now func() time.Time) *Resources {
	if now == nil {
		now = time.Now
	}
	return &Resources{backend: backend, now: now}
}

func (r *Resources) CreateResource(ctx context.Context, resource scheduler.Resource) (scheduler.Resource, error) {
	model := toPersistenceResource(resource)
	model.CreatedAt = r.now().UTC()
	model.UpdatedAt = model.CreatedAt
	if err := r.backend.CreateResource(ctx, model); err != nil {
		return scheduler.Resource{}, err
	}
	return resource, nil
}

func (r *Resources) GetResource(ctx context.Context, id string) (scheduler.Resource, error) {
	model, err := r.backend.GetResource(ctx, id)
	if err != nil {
		return scheduler.Resource{}, err
	}
	return toSchedulerResource(model)
}

func (r *Resources) UpdateResource(ctx context.Context, resource scheduler.Resource) (scheduler.Resource, error) {
	model := toPersistenceResource(resource)
	model.UpdatedAt = r.now().UTC()
	if err := r.backend.UpdateResource(ctx, model); err != nil {
		return scheduler.Resource{}, err
	}
	return resource, nil
}

func (r *Resources) DeleteResource(ctx context.Context, id string) error {
	return r.backend.DeleteResource(ctx, id)
}

func (r *Resources) ListResources(ctx context.Context) ([]scheduler.Resource, error) {
	models, err := r.backend.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	resources := make([]scheduler.Resource, 0, len(models))
	for _, model := range models {
		resource, err := toSchedulerResource(model)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

// Reservations implements application.ReservationRepository.
type Reservations struct {
	backend persistence.ReservationRepository
}

func NewReservations(backend persistence.ReservationRepository) *Reservations {
	return &Reservations{backend: backend}
}

func (r *Reservations) CreateReservations(ctx context.Context, reservations []scheduler.Reservation) error {
	models := make([]persistence.Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		models = append(models, toPersistenceReservation(reservation))
	}
	return r.backend.CreateReservations(ctx, models)
}

func (r *Reservations) GetReservation(ctx context.Context, id string) (scheduler.Reservation, error) {
	model, err := r.backend.GetReservation(ctx, id)
	if err != nil {
		return scheduler.Reservation{}, err
	}
	return toSchedulerReservation(model)
}

func (r *Reservations) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]scheduler.Reservation, error) {
	query := persistence.ReservationFilter{
		ResourceID: filter.ResourceID,
		ParentID:   filter.ParentID,
	}
	for _, status := range filter.Statuses {
		query.Statuses = append(query.Statuses, string(status))
	}
	if !filter.From.IsZero() {
		from := filter.From
		query.EndsAfter = &from
	}
	if !filter.To.IsZero() {
		to := filter.To
		query.StartsBefore = &to
	}

	models, err := r.backend.ListReservations(ctx, query)
	if err != nil {
		return nil, err
	}
	reservations := make([]scheduler.Reservation, 0, len(models))
	for _, model := range models {
		reservation, err := toSchedulerReservation(model)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func (r *Reservations) UpdateReservationStatus(ctx context.Context, ids []string, from []scheduler.Status, status scheduler.Status, updatedAt time.Time) error {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}
	return r.backend.UpdateReservationStatus(ctx, ids, expected, string(status), updatedAt.UTC())
}

func toPersistenceResource(resource scheduler.Resource) persistence.Resource {
	var hours []persistence.OperatingHours
	for day, window := range resource.Hours {
		if window.Closed() {
			continue
		}
		hours = append(hours, persistence.OperatingHours{
			Weekday: time.Weekday(day),
			Open:    window.Open.String(),
			Close:   window.Close.String(),
		})
	}
	return persistence.Resource{
		ID:                     resource.ID,
		Name:                   resource.Name,
		Kind:                   string(resource.Kind),
		Capacity:               resource.Capacity,
		Hours:                  hours,
		SlotGranularityMinutes: int(resource.SlotGranularity / time.Minute),
		MinAdvanceMinutes:      int(resource.MinAdvance / time.Minute),
		MaxDurationMinutes:     int(resource.MaxDuration / time.Minute),
		RequiresApproval:       resource.RequiresApproval,
	}
}

func toSchedulerResource(model persistence.Resource) (scheduler.Resource, error) {
	var hours scheduler.OperatingHours
	for _, h := range model.Hours {
		if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
			return scheduler.Resource{}, fmt.Errorf("store: resource %s: weekday %d out of range", model.ID, h.Weekday)
		}
		open, err := scheduler.ParseClock(h.Open)
		if err != nil {
			return scheduler.Resource{}, fmt.Errorf("store: resource %s: %w", model.ID, err)
		}
		closeAt, err := scheduler.ParseClock(h.Close)
		if err != nil {
			return scheduler.Resource{}, fmt.Errorf("store: resource %s: %w", model.ID, err)
		}
		hours[h.Weekday] = scheduler.DailyHours{Open: open, Close: closeAt}
	}
	return scheduler.Resource{
		ID:               model.ID,
		Name:             model.Name,
		Kind:             scheduler.ResourceKind(model.Kind),
		Capacity:         model.Capacity,
		Hours:            hours,
		SlotGranularity:  time.Duration(model.SlotGranularityMinutes) * time.Minute,
		MinAdvance:       time.Duration(model.MinAdvanceMinutes) * time.Minute,
		MaxDuration:      time.Duration(model.MaxDurationMinutes) * time.Minute,
		RequiresApproval: model.RequiresApproval,
	}, nil
}

func toPersistenceReservation(reservation scheduler.Reservation) persistence.Reservation {
	model := persistence.Reservation{
		ID:               reservation.ID,
		ResourceID:       reservation.ResourceID,
		Start:            reservation.Interval.Start().UTC(),
		End:              reservation.Interval.End().UTC(),
		ParticipantCount: reservation.ParticipantCount,
		Status:           string(reservation.Status),
		Title:            reservation.Title,
		CreatedAt:        reservation.CreatedAt.UTC(),
		UpdatedAt:        reservation.UpdatedAt.UTC(),
	}
	if reservation.RecurrenceParentID != "" {
		parent := reservation.RecurrenceParentID
		model.RecurrenceParentID = &parent
	}
	return model
}

func toSchedulerReservation(model persistence.Reservation) (scheduler.Reservation, error) {
	span, err := interval.New(model.Start, model.End)
	if err != nil {
		return scheduler.Reservation{}, fmt.Errorf("store: reservation %s: %w", model.ID, err)
	}
	reservation := scheduler.Reservation{
		ID:               model.ID,
		ResourceID:       model.ResourceID,
		Interval:         span,
		ParticipantCount: model.ParticipantCount,
		Status:           scheduler.Status(model.Status),
		Title:            model.Title,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
	if model.RecurrenceParentID != nil {
		reservation.RecurrenceParentID = *model.RecurrenceParentID
	}
	return reservation, nil
}
