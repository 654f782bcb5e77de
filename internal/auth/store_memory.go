package auth

import (
	"context"
	"sync"
	"time"

	"chapel/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return sentinel.ErrConflict
	}
	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	copied := *user
	s.users[user.Username] = &copied
	return nil
}

func (s *InMemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *user
	return &copied, nil
}
