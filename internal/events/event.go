// Package events publishes reservation lifecycle events.
package events

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Type names a reservation lifecycle event. It doubles as the routing key.
type Type string

const (
	TypeReservationCreated   Type = "reservation.created"
	TypeReservationCancelled Type = "reservation.cancelled"
	TypeReservationApproved  Type = "reservation.approved"
	TypeReservationRejected  Type = "reservation.rejected"
)

// Event describes a change to one reservation series.
type Event struct {
	Type           Type      `json:"type"`
	ResourceID     string    `json:"resource_id"`
	SeriesID       string    `json:"series_id"`
	ReservationIDs []string  `json:"reservation_ids"`
	Status         string    `json:"status"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event.
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.ReservationIDs = slices.Clone(event.ReservationIDs)
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events in publication order.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// Close is a no-op.
func (p *MemoryPublisher) Close() error {
	return nil
}
