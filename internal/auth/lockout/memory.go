package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

// MemoryTracker is an in-process Tracker for tests and single-instance
// deployments without Redis.
type MemoryTracker struct {
	mu        sync.Mutex
	threshold int64
	window    time.Duration
	entries   map[string]*entry
	now       func() time.Time
}

func NewMemoryTracker(threshold int64, window time.Duration) *MemoryTracker {
	return &MemoryTracker{
		threshold: threshold,
		window:    window,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
}

func (t *MemoryTracker) RecordFailure(_ context.Context, username string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.live(username)
	if e == nil {
		e = &entry{}
		t.entries[username] = e
	}
	e.count++
	e.expiresAt = t.now().Add(t.window)
	return e.count, nil
}

func (t *MemoryTracker) Locked(_ context.Context, username string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.live(username)
	return e != nil && e.count >= t.threshold, nil
}

func (t *MemoryTracker) Clear(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, username)
	return nil
}

// live returns the entry for username, dropping it if the window lapsed.
// Callers hold the mutex.
func (t *MemoryTracker) live(username string) *entry {
	e, ok := t.entries[username]
	if !ok {
		return nil
	}
	if t.now().After(e.expiresAt) {
		delete(t.entries, username)
		return nil
	}
	return e
}
