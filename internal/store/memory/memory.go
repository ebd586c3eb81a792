// Package memory provides a store.Driver holding the event journal in
// process memory. It is the default backend and suits deployments that do
// not need the journal to survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/config"
	"github.com/jensholdgaard/discord-auction-bot/internal/event"
	"github.com/jensholdgaard/discord-auction-bot/internal/store"
)

// closerFunc adapts a func() error into an io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	store.Register("memory", openMemory)
}

// openMemory is the store.Driver for the "memory" backend.
func openMemory(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Events: NewEventStore(clk),
		Closer: closerFunc(func() error { return nil }),
	}, nil
}

// EventStore implements event.Store with an in-process journal.
type EventStore struct {
	mu     sync.RWMutex
	events []event.Event
	clock  clock.Clock
}

// NewEventStore returns an empty in-memory event store.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{clock: clk}
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now()
		}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}
