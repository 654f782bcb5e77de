package assetlog

import (
	"context"
	"sort"
	"sync"
	"time"
)

type recordKey struct {
	kind  string
	id    int64
	field string
}

// InMemoryStore keeps asset records in process memory with the same
// per-(entity, field) replacement semantics as the Postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[recordKey]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, records: make(map[recordKey]Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record Record, attributeUploader bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{kind: record.Entity.Kind, id: record.Entity.ID, field: record.FieldName}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	if prev, ok := s.records[key]; ok {
		record.ID = prev.ID
		if !attributeUploader {
			record.UploadedBy = prev.UploadedBy
		}
	} else {
		record.ID = s.nextID
		s.nextID++
	}

	s.records[key] = record
	return nil
}

func (s *InMemoryStore) DeleteAllFor(_ context.Context, ref EntityRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key := range s.records {
		if key.kind == ref.Kind && key.id == ref.ID {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if filter.EntityKind != "" && r.Entity.Kind != filter.EntityKind {
			continue
		}
		if filter.EntityID != 0 && r.Entity.ID != filter.EntityID {
			continue
		}
		if filter.UploadedBy != "" && r.UploadedBy != filter.UploadedBy {
			continue
		}
		if !filter.Since.IsZero() && r.RecordedAt.Before(filter.Since) {
			continue
		}
		if filter.MinSizeBytes > 0 && r.SizeBytes < filter.MinSizeBytes {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
