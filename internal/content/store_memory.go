package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"chapel/pkg/platform/sentinel"
)

type itemKey struct {
	kind string
	id   int64
}

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[itemKey]*Item
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[itemKey]*Item)}
}

func (s *InMemoryStore) Create(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item.ID = s.nextID
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	s.items[itemKey{item.Kind, item.ID}] = item.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, kind string, id int64) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemKey{kind, id}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return item.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{item.Kind, item.ID}
	if _, ok := s.items[key]; !ok {
		return sentinel.ErrNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	s.items[key] = item.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, kind string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{kind, id}
	if _, ok := s.items[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, key)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Item
	for _, item := range s.items {
		if f.Kind != "" && item.Kind != f.Kind {
			continue
		}
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Kind != out[b].Kind {
			return out[a].Kind < out[b].Kind
		}
		return out[a].ID < out[b].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Exists(_ context.Context, kind string, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.items[itemKey{kind, id}]
	return ok, nil
}

// MemoryTxRunner satisfies TxRunner without a real transaction. Memory
// stores mutate in place, so fn's error is simply propagated.
type MemoryTxRunner struct{}

func (MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
