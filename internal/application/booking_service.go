package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/recurrence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

const (
	defaultHorizon     = 365 * 24 * time.Hour
	maxTitleLength     = 200
	alternativesLimit  = 3
	alternativesWindow = 14
	lockKeyPrefix      = "resource:"

	outcomeAccepted = "accepted"
	outcomePartial  = "partial"
	outcomeRejected = "rejected"
)

// BookingServiceDeps groups the collaborators of a BookingService.
type BookingServiceDeps struct {
	Resources    ResourceReader
	Reservations ReservationRepository
	Locker       Locker
	Events       EventPublisher
	Recorder     Recorder
	Invalidator  AvailabilityInvalidator
	Engine       *recurrence.Engine
	IDGenerator  func() string
	Now          func() time.Time
	// Horizon bounds recurrence expansion relative to the first occurrence.
	// Zero means one year.
	Horizon time.Duration
	Logger  *slog.Logger
}

// BookingService validates booking requests against resource rules and
// stores accepted series.
type BookingService struct {
	resources    ResourceReader
	reservations ReservationRepository
	locker       Locker
	events       EventPublisher
	recorder     Recorder
	invalidator  AvailabilityInvalidator
	validator    *scheduler.Validator
	idGenerator  func() string
	now          func() time.Time
	horizon      time.Duration
	logger       *slog.Logger
}

// NewBookingService constructs a booking service. Missing optional
// collaborators fall back to no-op implementations.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Horizon <= 0 {
		deps.Horizon = defaultHorizon
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	return &BookingService{
		resources:    deps.Resources,
		reservations: deps.Reservations,
		locker:       deps.Locker,
		events:       deps.Events,
		recorder:     deps.Recorder,
		invalidator:  deps.Invalidator,
		validator:    scheduler.NewValidator(deps.Engine),
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		horizon:      deps.Horizon,
		logger:       defaultLogger(deps.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// ValidateBooking evaluates a request without storing anything.
func (s *BookingService) ValidateBooking(ctx context.Context, params BookingParams) (result BookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ValidateBooking", "resource_id", params.ResourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to validate booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "booking validated",
			"accepted", result.Accepted(),
			"occurrences", len(result.Decision.Occurrences),
			"truncated", result.Decision.Truncated,
		)
	}()

	req, vErr := s.buildRequest(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var resource scheduler.Resource
	resource, err = s.loadResource(ctx, params.ResourceID)
	if err != nil {
		return
	}

	result, err = s.evaluate(ctx, resource, req, params.AcceptPartial)
	return
}

// CreateBooking validates and stores a booking. Snapshot, validation and
// insertion run while holding the resource lock so that concurrent requests
// for the same resource observe each other. A refused request returns a
// result with Accepted false and a nil error.
func (s *BookingService) CreateBooking(ctx context.Context, params BookingParams) (result BookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking", "resource_id", params.ResourceID)
	var resourceKind scheduler.ResourceKind
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		outcome, reason := bookingOutcome(result)
		s.recorder.RecordBookingDecision(resourceKind, outcome, reason)
		if !result.Accepted() {
			logger.InfoContext(ctx, "booking rejected", "reason", reason)
			return
		}
		s.recorder.RecordOccurrences(len(result.Reservations))
		logger.With("reservation_id", result.Reservations[0].ID).InfoContext(ctx, "booking created",
			"outcome", outcome,
			"occurrences", len(result.Reservations),
			"skipped", len(result.Skipped),
			"truncated", result.Decision.Truncated,
		)
	}()

	req, vErr := s.buildRequest(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var resource scheduler.Resource
	resource, err = s.loadResource(ctx, params.ResourceID)
	if err != nil {
		return
	}
	resourceKind = resource.Kind

	var release func()
	release, err = s.lock(ctx, resource.ID)
	if err != nil {
		return
	}
	defer release()

	result, err = s.evaluate(ctx, resource, req, params.AcceptPartial)
	if err != nil || !result.Accepted() {
		return
	}

	result.Reservations = s.buildSeries(resource, req, params, result.Decision)
	if err = s.reservations.CreateReservations(ctx, result.Reservations); err != nil {
		result.Reservations = nil
		err = mapReservationRepoError(err)
		return
	}

	s.afterWrite(ctx, logger, events.TypeReservationCreated, resource.ID, result.Reservations)
	return
}

// evaluate expands the request, loads the blocking reservations it could
// collide with and runs the validator.
func (s *BookingService) evaluate(ctx context.Context, resource scheduler.Resource, req scheduler.Request, acceptPartial bool) (BookingResult, error) {
	expansion, err := s.validator.Expand(req)
	if err != nil {
		return BookingResult{}, engineValidationError(err)
	}
	occurrences := expansion.Occurrences

	var existing []scheduler.Reservation
	if s.reservations != nil {
		existing, err = s.reservations.ListReservations(ctx, ReservationFilter{
			ResourceID: resource.ID,
			Statuses:   blockingStatuses(),
			From:       occurrences[0].Start(),
			To:         occurrences[len(occurrences)-1].End(),
		})
		if err != nil {
			return BookingResult{}, mapReservationRepoError(err)
		}
	}

	decision, err := s.validator.Validate(resource, req, existing, s.now())
	if err != nil {
		return BookingResult{}, engineValidationError(err)
	}

	result := BookingResult{Decision: decision}
	if decision.Accepted || decision.Rejection == nil || decision.Rejection.Kind != scheduler.RejectionResourceConflict {
		return result, nil
	}

	if acceptPartial && req.Rule().IsRecurring() {
		free := scheduler.FreeOccurrences(decision.Checks)
		if len(free) > 0 {
			result.Skipped = decision.Rejection.Conflicts
			result.Decision.Occurrences = free
			result.Decision.Accepted = true
			result.Decision.Rejection = nil
			result.Decision.Status = scheduler.StatusConfirmed
			if resource.RequiresApproval {
				result.Decision.Status = scheduler.StatusPending
			}
			return result, nil
		}
	}

	if !req.Rule().IsRecurring() {
		result.Alternatives, err = s.alternatives(ctx, resource, req.Interval)
		if err != nil {
			return BookingResult{}, err
		}
	}
	return result, nil
}

// alternatives suggests the next free intervals of the requested length.
func (s *BookingService) alternatives(ctx context.Context, resource scheduler.Resource, requested interval.Interval) ([]interval.Interval, error) {
	notBefore := requested.Start()
	if earliest := s.now().Add(resource.MinAdvance); notBefore.Before(earliest) {
		notBefore = earliest
	}
	if s.reservations == nil {
		return scheduler.FindOpenings(resource, nil, notBefore, requested.Duration(), alternativesLimit, alternativesWindow), nil
	}
	windowStart := dateOnly(notBefore)
	existing, err := s.reservations.ListReservations(ctx, ReservationFilter{
		ResourceID: resource.ID,
		Statuses:   blockingStatuses(),
		From:       windowStart,
		To:         windowStart.AddDate(0, 0, alternativesWindow+1),
	})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return scheduler.FindOpenings(resource, existing, notBefore, requested.Duration(), alternativesLimit, alternativesWindow), nil
}

// buildSeries turns accepted occurrences into reservations. The first
// occurrence is the series parent; the rest point at it.
func (s *BookingService) buildSeries(resource scheduler.Resource, req scheduler.Request, params BookingParams, decision scheduler.Decision) []scheduler.Reservation {
	now := s.now()
	series := make([]scheduler.Reservation, 0, len(decision.Occurrences))
	var parentID string
	for i, occ := range decision.Occurrences {
		r := scheduler.Reservation{
			ID:               s.idGenerator(),
			ResourceID:       resource.ID,
			Interval:         occ,
			ParticipantCount: req.ParticipantCount,
			Status:           decision.Status,
			Title:            strings.TrimSpace(params.Title),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if i == 0 {
			parentID = r.ID
		} else {
			r.RecurrenceParentID = parentID
		}
		series = append(series, r)
	}
	return series
}

// CancelReservation cancels a reservation. With Cascade every active member
// of its series is cancelled as well.
func (s *BookingService) CancelReservation(ctx context.Context, params CancelParams) (cancelled []scheduler.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation", "reservation_id", params.ReservationID, "cascade", params.Cascade)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled", "count", len(cancelled))
	}()

	cancelled, err = s.transition(ctx, logger, params.ReservationID, params.Cascade, activeStatuses, scheduler.StatusCancelled, events.TypeReservationCancelled)
	return
}

// ApproveReservation confirms the pending occurrences of a reservation's series.
func (s *BookingService) ApproveReservation(ctx context.Context, id string) (approved []scheduler.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ApproveReservation", "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation approved", "count", len(approved))
	}()

	approved, err = s.transition(ctx, logger, id, true, pendingStatuses, scheduler.StatusConfirmed, events.TypeReservationApproved)
	return
}

// RejectReservation refuses the pending occurrences of a reservation's series.
func (s *BookingService) RejectReservation(ctx context.Context, id string) (rejected []scheduler.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RejectReservation", "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation rejected", "count", len(rejected))
	}()

	rejected, err = s.transition(ctx, logger, id, true, pendingStatuses, scheduler.StatusRejected, events.TypeReservationRejected)
	return
}

var (
	activeStatuses  = []scheduler.Status{scheduler.StatusPending, scheduler.StatusConfirmed}
	pendingStatuses = []scheduler.Status{scheduler.StatusPending}
)

// transition moves the reservation, and its series when cascade is set, to
// target. The addressed reservation must be in one of the from statuses;
// other series members that are not are left untouched. Statuses are read
// and written under the resource lock.
func (s *BookingService) transition(ctx context.Context, logger *slog.Logger, id string, cascade bool, from []scheduler.Status, target scheduler.Status, eventType events.Type) ([]scheduler.Reservation, error) {
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	// Only the resource id is taken from this read; it never changes.
	located, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, mapReservationRepoError(err)
	}

	release, err := s.lock(ctx, located.ResourceID)
	if err != nil {
		return nil, err
	}
	defer release()

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	if !slices.Contains(from, reservation.Status) {
		return nil, fmt.Errorf("%w: reservation %s is %s", ErrInvalidTransition, reservation.ID, reservation.Status)
	}

	affected := []scheduler.Reservation{reservation}
	if cascade {
		affected, err = s.seriesMembers(ctx, reservation, from)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]string, len(affected))
	for i, r := range affected {
		ids[i] = r.ID
	}
	now := s.now()
	if err := s.reservations.UpdateReservationStatus(ctx, ids, from, target, now); err != nil {
		return nil, mapReservationRepoError(err)
	}
	for i := range affected {
		affected[i].Status = target
		affected[i].UpdatedAt = now
	}

	s.afterWrite(ctx, logger, eventType, reservation.ResourceID, affected)
	return affected, nil
}

// seriesMembers returns the parent and children of the reservation's series
// whose status is in from, ordered by start time. The caller holds the
// resource lock.
func (s *BookingService) seriesMembers(ctx context.Context, reservation scheduler.Reservation, from []scheduler.Status) ([]scheduler.Reservation, error) {
	seriesID := reservation.SeriesID()
	children, err := s.reservations.ListReservations(ctx, ReservationFilter{ParentID: seriesID})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}

	members := make([]scheduler.Reservation, 0, len(children)+1)
	parent, err := s.reservations.GetReservation(ctx, seriesID)
	if err != nil && !errors.Is(mapReservationRepoError(err), ErrNotFound) {
		return nil, mapReservationRepoError(err)
	}
	if err == nil && slices.Contains(from, parent.Status) {
		members = append(members, parent)
	}
	for _, child := range children {
		if slices.Contains(from, child.Status) {
			members = append(members, child)
		}
	}
	slices.SortFunc(members, func(a, b scheduler.Reservation) int {
		if c := a.Interval.Start().Compare(b.Interval.Start()); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return members, nil
}

// GetReservation returns a reservation by identifier.
func (s *BookingService) GetReservation(ctx context.Context, id string) (scheduler.Reservation, error) {
	if s == nil {
		return scheduler.Reservation{}, fmt.Errorf("BookingService is nil")
	}
	if s.reservations == nil || strings.TrimSpace(id) == "" {
		return scheduler.Reservation{}, ErrNotFound
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetReservation", "reservation_id", id).
				ErrorContext(ctx, "failed to load reservation", "error", err, "error_kind", ErrorKind(err))
		}
		return scheduler.Reservation{}, err
	}
	return reservation, nil
}

// ListReservations returns the reservations of a resource overlapping the
// optional [From, To) window, ordered by start time.
func (s *BookingService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []scheduler.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations", "resource_id", params.ResourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).DebugContext(ctx, "reservations listed")
	}()

	vErr := &ValidationError{}
	if !params.From.IsZero() && !params.To.IsZero() && !params.To.After(params.From) {
		vErr.add("to", "to must be after from")
	}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.loadResource(ctx, params.ResourceID); err != nil {
		return
	}

	reservations, err = s.reservations.ListReservations(ctx, ReservationFilter{
		ResourceID: params.ResourceID,
		Statuses:   params.Statuses,
		From:       params.From,
		To:         params.To,
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	return
}

func (s *BookingService) loadResource(ctx context.Context, id string) (scheduler.Resource, error) {
	if s.resources == nil || strings.TrimSpace(id) == "" {
		return scheduler.Resource{}, ErrNotFound
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return scheduler.Resource{}, mapResourceRepoError(err)
	}
	return resource, nil
}

func (s *BookingService) lock(ctx context.Context, resourceID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Lock(ctx, lockKeyPrefix+resourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	return release, nil
}

// afterWrite publishes the change and drops cached availability. Publishing
// failures are logged and never undo the write.
func (s *BookingService) afterWrite(ctx context.Context, logger *slog.Logger, eventType events.Type, resourceID string, affected []scheduler.Reservation) {
	if s.invalidator != nil {
		s.invalidator.InvalidateResource(resourceID)
	}
	if len(affected) == 0 {
		return
	}

	ids := make([]string, len(affected))
	for i, r := range affected {
		ids[i] = r.ID
	}
	event := events.Event{
		Type:           eventType,
		ResourceID:     resourceID,
		SeriesID:       affected[0].SeriesID(),
		ReservationIDs: ids,
		Status:         string(affected[0].Status),
		Start:          affected[0].Interval.Start(),
		End:            affected[len(affected)-1].Interval.End(),
		OccurredAt:     s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "event_type", string(eventType), "error", err)
	}
}

// buildRequest validates caller input and converts it into an engine request.
func (s *BookingService) buildRequest(params BookingParams) (scheduler.Request, *ValidationError) {
	vErr := &ValidationError{}

	if strings.TrimSpace(params.ResourceID) == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if len(strings.TrimSpace(params.Title)) > maxTitleLength {
		vErr.add("title", fmt.Sprintf("title cannot exceed %d characters", maxTitleLength))
	}

	var span interval.Interval
	if !params.Start.IsZero() && !params.End.IsZero() {
		var err error
		span, err = interval.New(params.Start, params.End)
		if err != nil {
			vErr.add("end", "end must be after start")
		}
	}

	rule, rErr := buildRule(params.Recurrence)
	vErr.merge(rErr)
	if vErr.HasErrors() {
		return scheduler.Request{}, vErr
	}

	return scheduler.Request{
		ResourceID:       params.ResourceID,
		Interval:         span,
		Recurrence:       rule,
		ParticipantCount: params.ParticipantCount,
		Cutoff:           span.Start().Add(s.horizon),
	}, vErr
}

// buildRule converts recurrence input into an engine rule. A date-only Until
// covers the whole day.
func buildRule(input *RecurrenceInput) (recurrence.Rule, *ValidationError) {
	vErr := &ValidationError{}
	if input == nil {
		return recurrence.Single(), vErr
	}

	every := input.Interval
	if every == 0 {
		every = 1
	}
	if every < 0 {
		vErr.add("recurrence.interval", "interval must be a positive integer")
	}

	var pattern recurrence.Pattern
	switch recurrence.Kind(strings.ToLower(strings.TrimSpace(input.Pattern))) {
	case "", recurrence.KindNone:
		pattern = recurrence.None{}
	case recurrence.KindDaily:
		pattern = recurrence.Daily{Every: every}
	case recurrence.KindWeekly:
		pattern = recurrence.Weekly{Every: every, Days: slices.Clone(input.Weekdays)}
	case recurrence.KindMonthly:
		pattern = recurrence.Monthly{Every: every}
	default:
		vErr.add("recurrence.pattern", "pattern must be one of none, daily, weekly or monthly")
	}

	var end recurrence.End = recurrence.Never{}
	switch {
	case input.Until != nil && input.Count != 0:
		vErr.add("recurrence.end", "until and count are mutually exclusive")
	case input.Until != nil:
		until := *input.Until
		if until.Equal(dateOnly(until)) {
			until = until.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		end = recurrence.Until{Date: until}
	case input.Count < 0:
		vErr.add("recurrence.count", "count must be positive")
	case input.Count > 0:
		end = recurrence.After{Count: input.Count}
	}

	return recurrence.Rule{Pattern: pattern, End: end}, vErr
}

func bookingOutcome(result BookingResult) (outcome, reason string) {
	switch {
	case result.Accepted() && len(result.Skipped) > 0:
		return outcomePartial, string(scheduler.RejectionResourceConflict)
	case result.Accepted():
		return outcomeAccepted, ""
	case result.Decision.Rejection != nil:
		return outcomeRejected, string(result.Decision.Rejection.Kind)
	default:
		return outcomeRejected, "unknown"
	}
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrStatusMismatch):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: resource no longer exists", ErrNotFound)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("reservation", "reservation violates a storage constraint")
		return vErr
	}
	return err
}
