package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

// MemoryStore keeps appointments in process memory. It backs local runs
// without DATABASE_URL and the handler tests; it has no outbox.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   uint64
	items map[string]memoryItem
}

type memoryItem struct {
	appt model.Appointment
	seq  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}}
}

func (s *MemoryStore) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[appt.ID]; exists {
		return model.Appointment{}, ErrConflict
	}
	s.seq++
	s.items[appt.ID] = memoryItem{appt: appt, seq: s.seq}
	return appt, nil
}

func (s *MemoryStore) Confirm(_ context.Context, id string, at time.Time) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	item.appt.Confirm(at)
	s.items[id] = item
	return item.appt, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return item.appt, nil
}

// List returns newest first; records created in the same instant keep
// reverse insertion order.
func (s *MemoryStore) List(_ context.Context, status model.Status) ([]model.Appointment, error) {
	s.mu.RLock()
	items := make([]memoryItem, 0, len(s.items))
	for _, item := range s.items {
		if status != "" && item.appt.Status != status {
			continue
		}
		items = append(items, item)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.appt.CreatedAt.Equal(b.appt.CreatedAt) {
			return a.appt.CreatedAt.After(b.appt.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]model.Appointment, 0, len(items))
	for _, item := range items {
		out = append(out, item.appt)
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
