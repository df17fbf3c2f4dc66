package application

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

var testDay = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return testDay.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func meetingRoom() scheduler.Resource {
	return scheduler.Resource{
		ID:              "room-1",
		Name:            "Meeting Room",
		Kind:            scheduler.KindRoom,
		Capacity:        4,
		Hours:           scheduler.UniformHours(scheduler.Clock(8, 0), scheduler.Clock(18, 0)),
		SlotGranularity: time.Hour,
	}
}

type resourceRepoStub struct {
	mu sync.Mutex

	resources map[string]scheduler.Resource
	created   scheduler.Resource
	updated   scheduler.Resource
	deletedID string

	createErr error
	getErr    error
	updateErr error
	deleteErr error
	listErr   error
}

func newResourceRepoStub(resources ...scheduler.Resource) *resourceRepoStub {
	stub := &resourceRepoStub{resources: make(map[string]scheduler.Resource)}
	for _, r := range resources {
		stub.resources[r.ID] = r
	}
	return stub
}

func (r *resourceRepoStub) CreateResource(_ context.Context, resource scheduler.Resource) (scheduler.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return scheduler.Resource{}, r.createErr
	}
	r.created = resource
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *resourceRepoStub) GetResource(_ context.Context, id string) (scheduler.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return scheduler.Resource{}, r.getErr
	}
	resource, ok := r.resources[id]
	if !ok {
		return scheduler.Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

func (r *resourceRepoStub) UpdateResource(_ context.Context, resource scheduler.Resource) (scheduler.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return scheduler.Resource{}, r.updateErr
	}
	r.updated = resource
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *resourceRepoStub) DeleteResource(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	delete(r.resources, id)
	return nil
}

func (r *resourceRepoStub) ListResources(_ context.Context) ([]scheduler.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]scheduler.Resource, 0, len(r.resources))
	for _, resource := range r.resources {
		out = append(out, resource)
	}
	return out, nil
}

// reservationStoreStub is a goroutine-safe in-memory ReservationRepository.
type reservationStoreStub struct {
	mu           sync.Mutex
	reservations map[string]scheduler.Reservation
	listCalls    int
	createErr    error
	listErr      error
	// delay widens the window between snapshot and insert.
	delay time.Duration
	// afterList runs once a snapshot has been taken, outside the lock.
	afterList func()
}

func newReservationStoreStub(existing ...scheduler.Reservation) *reservationStoreStub {
	stub := &reservationStoreStub{reservations: make(map[string]scheduler.Reservation)}
	for _, r := range existing {
		stub.reservations[r.ID] = r
	}
	return stub
}

func (s *reservationStoreStub) ListReservations(_ context.Context, filter ReservationFilter) ([]scheduler.Reservation, error) {
	s.mu.Lock()
	s.listCalls++
	if s.listErr != nil {
		s.mu.Unlock()
		return nil, s.listErr
	}
	var out []scheduler.Reservation
	for _, r := range s.reservations {
		if filter.ResourceID != "" && r.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ParentID != "" && r.RecurrenceParentID != filter.ParentID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		if !filter.From.IsZero() && !r.Interval.End().After(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !r.Interval.Start().Before(filter.To) {
			continue
		}
		out = append(out, r)
	}
	delay, afterList := s.delay, s.afterList
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if afterList != nil {
		afterList()
	}
	slices.SortFunc(out, func(a, b scheduler.Reservation) int {
		if c := a.Interval.Start().Compare(b.Interval.Start()); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *reservationStoreStub) CreateReservations(_ context.Context, reservations []scheduler.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, r := range reservations {
		if _, exists := s.reservations[r.ID]; exists {
			return persistence.ErrDuplicate
		}
	}
	for _, r := range reservations {
		s.reservations[r.ID] = r
	}
	return nil
}

func (s *reservationStoreStub) GetReservation(_ context.Context, id string) (scheduler.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return scheduler.Reservation{}, persistence.ErrNotFound
	}
	return r, nil
}

func (s *reservationStoreStub) UpdateReservationStatus(_ context.Context, ids []string, from []scheduler.Status, status scheduler.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		r, ok := s.reservations[id]
		if !ok {
			return persistence.ErrNotFound
		}
		if !slices.Contains(from, r.Status) {
			return persistence.ErrStatusMismatch
		}
	}
	for _, id := range ids {
		r := s.reservations[id]
		r.Status = status
		r.UpdatedAt = updatedAt
		s.reservations[id] = r
	}
	return nil
}

func (s *reservationStoreStub) count(status scheduler.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reservations {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s *reservationStoreStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type invalidatorStub struct {
	mu  sync.Mutex
	ids []string
}

func (i *invalidatorStub) InvalidateResource(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, id)
}

type recorderStub struct {
	mu          sync.Mutex
	decisions   []string
	occurrences []int
	lookups     []bool
}

func (r *recorderStub) RecordBookingDecision(kind scheduler.ResourceKind, outcome, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, string(kind)+"/"+outcome+"/"+reason)
}

func (r *recorderStub) RecordOccurrences(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.occurrences = append(r.occurrences, count)
}

func (r *recorderStub) RecordAvailabilityLookup(cached bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, cached)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return context.DeadlineExceeded
}

type lockerStub struct {
	err error
}

func (l lockerStub) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

func booked(id string, start, end time.Time, status scheduler.Status) scheduler.Reservation {
	return scheduler.Reservation{
		ID:               id,
		ResourceID:       "room-1",
		Interval:         interval.MustNew(start, end),
		ParticipantCount: 1,
		Status:           status,
	}
}
