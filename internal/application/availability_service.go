package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// AvailabilityOptions tunes the availability service.
type AvailabilityOptions struct {
	// MaxDays caps the number of calendar days per query. Zero means 31.
	MaxDays int
	// CacheTTL is the lifetime of cached grids. Zero means 30s, negative
	// disables caching.
	CacheTTL     time.Duration
	CacheEntries int
	Recorder     Recorder
}

// AvailabilityService computes slot availability for resources.
type AvailabilityService struct {
	resources    ResourceReader
	reservations ReservationReader
	cache        *availabilityCache
	maxDays      int
	now          func() time.Time
	recorder     Recorder
	logger       *slog.Logger
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(resources ResourceReader, reservations ReservationReader, opts AvailabilityOptions, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(resources, reservations, opts, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(resources ResourceReader, reservations ReservationReader, opts AvailabilityOptions, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 31
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	svc := &AvailabilityService{
		resources:    resources,
		reservations: reservations,
		maxDays:      opts.MaxDays,
		now:          now,
		recorder:     opts.Recorder,
		logger:       defaultLogger(logger),
	}
	if opts.CacheTTL >= 0 {
		svc.cache = newAvailabilityCache(opts.CacheTTL, opts.CacheEntries, now)
	}
	return svc
}

// InvalidateResource drops cached availability of the resource.
func (s *AvailabilityService) InvalidateResource(resourceID string) {
	if s == nil {
		return
	}
	s.cache.InvalidateResource(resourceID)
}

// GetAvailability returns the slot grid of a resource for every day of the
// closed range [From, To].
func (s *AvailabilityService) GetAvailability(ctx context.Context, params AvailabilityParams) (result Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	started := time.Now()
	cached := false
	logger := serviceLogger(ctx, s.logger, "AvailabilityService", "GetAvailability",
		"resource_id", params.ResourceID,
		"from", params.From.Format(time.DateOnly),
		"to", params.To.Format(time.DateOnly),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.recorder.RecordAvailabilityLookup(cached, time.Since(started))
		logger.DebugContext(ctx, "availability computed", "days", len(result.Days), "cached", cached)
	}()

	from, to, vErr := s.validateRange(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	generation := s.cache.Generation(params.ResourceID)

	var resource scheduler.Resource
	resource, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	result = Availability{Resource: resource, From: from, To: to}

	key := cacheKey(resource.ID, from, to)
	if days, ok := s.cache.Get(key); ok {
		cached = true
		result.Days = days
		return
	}

	var existing []scheduler.Reservation
	existing, err = s.reservations.ListReservations(ctx, ReservationFilter{
		ResourceID: resource.ID,
		Statuses:   blockingStatuses(),
		From:       from,
		To:         to.AddDate(0, 0, 1),
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	result.Days, err = scheduler.Aggregate(resource, existing, from, to)
	if err != nil {
		err = engineValidationError(err)
		return
	}
	if s.cache != nil && !s.cache.Store(key, generation, result.Days) {
		logger.DebugContext(ctx, "availability changed during lookup, grid not cached")
	}
	return
}

func (s *AvailabilityService) validateRange(params AvailabilityParams) (time.Time, time.Time, *ValidationError) {
	vErr := &ValidationError{}
	if params.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if params.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if vErr.HasErrors() {
		return time.Time{}, time.Time{}, vErr
	}

	from := dateOnly(params.From)
	to := dateOnly(params.To)
	if to.Before(from) {
		vErr.add("to", "to must not be before from")
		return from, to, vErr
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.maxDays {
		vErr.add("to", fmt.Sprintf("range cannot exceed %d days", s.maxDays))
	}
	return from, to, vErr
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func blockingStatuses() []scheduler.Status {
	return []scheduler.Status{scheduler.StatusPending, scheduler.StatusConfirmed}
}
