// Package memory provides an in-process persistence layer used by tests and
// single-node development deployments.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
)

// Storage keeps resources and reservations in maps guarded by one RWMutex.
type Storage struct {
	mu           sync.RWMutex
	resources    map[string]persistence.Resource
	reservations map[string]persistence.Reservation
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		resources:    make(map[string]persistence.Resource),
		reservations: make(map[string]persistence.Reservation),
	}
}

// Close releases resources held by the storage. It is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. It is a no-op.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- ResourceRepository implementation ---

// CreateResource stores a new resource.
func (s *Storage) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return fmt.Errorf("memory: resource %s: %w", resource.ID, persistence.ErrDuplicate)
	}
	s.resources[resource.ID] = cloneResource(resource)
	return nil
}

// UpdateResource replaces an existing resource.
func (s *Storage) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.resources[resource.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	resource.CreatedAt = existing.CreatedAt
	s.resources[resource.ID] = cloneResource(resource)
	return nil
}

// GetResource fetches a resource by identifier.
func (s *Storage) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	return cloneResource(resource), nil
}

// ListResources returns every resource ordered by name, then identifier.
func (s *Storage) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		result = append(result, cloneResource(resource))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteResource removes a resource that no reservation references.
func (s *Storage) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, reservation := range s.reservations {
		if reservation.ResourceID == id {
			return fmt.Errorf("memory: resource %s has reservations: %w", id, persistence.ErrForeignKeyViolation)
		}
	}
	delete(s.resources, id)
	return nil
}

// --- ReservationRepository implementation ---

// CreateReservations stores the batch atomically.
func (s *Storage) CreateReservations(ctx context.Context, reservations []persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(reservations))
	for _, reservation := range reservations {
		if reservation.ID == "" || !reservation.Start.Before(reservation.End) {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.resources[reservation.ResourceID]; !ok {
			return fmt.Errorf("memory: resource %s: %w", reservation.ResourceID, persistence.ErrForeignKeyViolation)
		}
		if _, ok := s.reservations[reservation.ID]; ok {
			return fmt.Errorf("memory: reservation %s: %w", reservation.ID, persistence.ErrDuplicate)
		}
		if _, ok := batch[reservation.ID]; ok {
			return fmt.Errorf("memory: reservation %s: %w", reservation.ID, persistence.ErrDuplicate)
		}
		batch[reservation.ID] = struct{}{}
	}

	for _, reservation := range reservations {
		s.reservations[reservation.ID] = cloneReservation(reservation)
	}
	return nil
}

// GetReservation fetches a reservation by identifier.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return cloneReservation(reservation), nil
}

// ListReservations returns matching reservations ordered by start time.
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if matchesReservationFilter(reservation, filter) {
			result = append(result, cloneReservation(reservation))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Start.Equal(result[j].Start) {
			return result[i].ID < result[j].ID
		}
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

// UpdateReservationStatus sets status on every listed reservation. Unknown
// identifiers or a current status outside from abort the update without side
// effects.
func (s *Storage) UpdateReservationStatus(ctx context.Context, ids []string, from []string, status string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		reservation, ok := s.reservations[id]
		if !ok {
			return fmt.Errorf("memory: reservation %s: %w", id, persistence.ErrNotFound)
		}
		if len(from) > 0 && !slices.Contains(from, reservation.Status) {
			return fmt.Errorf("memory: reservation %s is %s: %w", id, reservation.Status, persistence.ErrStatusMismatch)
		}
	}
	for _, id := range ids {
		reservation := s.reservations[id]
		reservation.Status = status
		reservation.UpdatedAt = updatedAt
		s.reservations[id] = reservation
	}
	return nil
}

func matchesReservationFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if filter.ResourceID != "" && reservation.ResourceID != filter.ResourceID {
		return false
	}
	if filter.ParentID != "" {
		if reservation.RecurrenceParentID == nil || *reservation.RecurrenceParentID != filter.ParentID {
			return false
		}
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, reservation.Status) {
		return false
	}
	if filter.EndsAfter != nil && !reservation.End.After(*filter.EndsAfter) {
		return false
	}
	if filter.StartsBefore != nil && !reservation.Start.Before(*filter.StartsBefore) {
		return false
	}
	return true
}

func cloneResource(resource persistence.Resource) persistence.Resource {
	clone := resource
	if resource.Hours != nil {
		clone.Hours = make([]persistence.OperatingHours, len(resource.Hours))
		copy(clone.Hours, resource.Hours)
	}
	return clone
}

func cloneReservation(reservation persistence.Reservation) persistence.Reservation {
	clone := reservation
	if reservation.RecurrenceParentID != nil {
		parent := *reservation.RecurrenceParentID
		clone.RecurrenceParentID = &parent
	}
	return clone
}
