package provenance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps events in process memory. It backs unit tests and
// single-node development; semantics match the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event = event.Normalized(time.Now())
	event.ID = s.nextID
	s.nextID++
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.EntityKind != "" && e.EntityKind != filter.EntityKind {
			continue
		}
		if !filter.Since.IsZero() && e.OccurredAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.OccurredAt.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}

	// Most recent first; ID breaks ties for events in the same instant.
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
