package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// ResourceRepository captures the persistence operations needed by the catalog.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource scheduler.Resource) (scheduler.Resource, error)
	GetResource(ctx context.Context, id string) (scheduler.Resource, error)
	UpdateResource(ctx context.Context, resource scheduler.Resource) (scheduler.Resource, error)
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context) ([]scheduler.Resource, error)
}

// AvailabilityInvalidator drops cached availability of a resource.
type AvailabilityInvalidator interface {
	InvalidateResource(resourceID string)
}

// ResourceService orchestrates validation and persistence for the resource catalog.
type ResourceService struct {
	resources   ResourceRepository
	invalidator AvailabilityInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources ResourceRepository, invalidator AvailabilityInvalidator, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, invalidator, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, invalidator AvailabilityInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		invalidator: invalidator,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and persists a new resource.
func (s *ResourceService) CreateResource(ctx context.Context, input ResourceInput) (resource scheduler.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource", "kind", input.Kind)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	candidate, vErr := buildResource(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate.ID = s.idGenerator()

	if s.resources == nil {
		resource = candidate
		return
	}

	resource, err = s.resources.CreateResource(ctx, candidate)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	return
}

// UpdateResource validates input and replaces an existing resource. Cached
// availability of the resource is dropped.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource scheduler.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource", "resource_id", params.ResourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated")
	}()

	if _, err = s.resources.GetResource(ctx, params.ResourceID); err != nil {
		err = mapResourceRepoError(err)
		return
	}

	updated, vErr := buildResource(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	updated.ID = params.ResourceID

	resource, err = s.resources.UpdateResource(ctx, updated)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateResource(resource.ID)
	}
	return
}

// GetResource returns a resource by identifier.
func (s *ResourceService) GetResource(ctx context.Context, id string) (scheduler.Resource, error) {
	if s == nil {
		return scheduler.Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return scheduler.Resource{}, ErrNotFound
	}
	if strings.TrimSpace(id) == "" {
		return scheduler.Resource{}, ErrNotFound
	}

	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		err = mapResourceRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetResource", "resource_id", id).
				ErrorContext(ctx, "failed to load resource", "error", err, "error_kind", ErrorKind(err))
		}
		return scheduler.Resource{}, err
	}
	return resource, nil
}

// ListResources returns the catalog ordered by name.
func (s *ResourceService) ListResources(ctx context.Context) (resources []scheduler.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListResources")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).DebugContext(ctx, "resources listed")
	}()

	var raw []scheduler.Resource
	raw, err = s.resources.ListResources(ctx)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resources = make([]scheduler.Resource, len(raw))
	copy(resources, raw)
	sort.Slice(resources, func(i, j int) bool {
		if strings.EqualFold(resources[i].Name, resources[j].Name) {
			return resources[i].ID < resources[j].ID
		}
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
	return
}

// DeleteResource removes a resource without reservations.
func (s *ResourceService) DeleteResource(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteResource", "resource_id", id)

	if err := s.resources.DeleteResource(ctx, id); err != nil {
		err = mapResourceRepoError(err)
		logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateResource(id)
	}
	logger.InfoContext(ctx, "resource deleted")
	return nil
}

// buildResource validates input, collecting every field problem.
func buildResource(input ResourceInput) (scheduler.Resource, *ValidationError) {
	vErr := &ValidationError{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}

	kind := scheduler.ResourceKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if !kind.Valid() {
		vErr.add("kind", "kind must be one of room, desk or studio")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.SlotGranularityMinutes <= 0 {
		vErr.add("slot_granularity_minutes", "slot granularity must be positive")
	}
	if input.MinAdvanceMinutes < 0 {
		vErr.add("min_advance_minutes", "minimum advance notice cannot be negative")
	}
	if input.MaxDurationMinutes < 0 {
		vErr.add("max_duration_minutes", "maximum duration cannot be negative")
	}

	var hours scheduler.OperatingHours
	seen := make(map[time.Weekday]bool, len(input.Hours))
	for _, h := range input.Hours {
		field := fmt.Sprintf("hours.%s", strings.ToLower(h.Weekday.String()))
		if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
			vErr.add("hours", fmt.Sprintf("weekday %d is outside 0..6", int(h.Weekday)))
			continue
		}
		if seen[h.Weekday] {
			vErr.add(field, "weekday listed more than once")
			continue
		}
		seen[h.Weekday] = true

		open, err := scheduler.ParseClock(h.Open)
		if err != nil {
			vErr.add(field, "open must use HH:MM")
			continue
		}
		closeAt, err := scheduler.ParseClock(h.Close)
		if err != nil {
			vErr.add(field, "close must use HH:MM")
			continue
		}
		if closeAt <= open {
			vErr.add(field, "close must be after open")
			continue
		}
		hours[h.Weekday] = scheduler.DailyHours{Open: open, Close: closeAt}
	}

	return scheduler.Resource{
		Name:             name,
		Kind:             kind,
		Capacity:         input.Capacity,
		Hours:            hours,
		SlotGranularity:  time.Duration(input.SlotGranularityMinutes) * time.Minute,
		MinAdvance:       time.Duration(input.MinAdvanceMinutes) * time.Minute,
		MaxDuration:      time.Duration(input.MaxDurationMinutes) * time.Minute,
		RequiresApproval: input.RequiresApproval,
	}, vErr
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrResourceInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("resource", "resource violates a storage constraint")
		return vErr
	}
	return err
}
