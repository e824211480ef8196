package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps events in insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LatestForBook(_ context.Context, bookID uuid.UUID) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *Event
	for _, event := range m.events {
		if event.BookID == nil || *event.BookID != bookID {
			continue
		}
		if latest == nil || event.Sequence > latest.Sequence {
			latest = event
		}
	}
	return latest.Clone(), nil
}

func (m *MemoryStore) Insert(_ context.Context, event *Event) error {
	if event == nil {
		return ErrEventRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event.Clone())
	return nil
}

func (m *MemoryStore) Query(_ context.Context, filter Filter, limit, offset int) ([]*Event, int, error) {
	matches := m.match(filter)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})

	total := len(matches)
	if offset >= total {
		return []*Event{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}

func (m *MemoryStore) ListForBook(_ context.Context, bookID uuid.UUID) ([]*Event, error) {
	matches := m.match(Filter{BookID: &bookID})
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Sequence < matches[j].Sequence
	})
	return matches, nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]*Event, error) {
	matches := m.match(filter)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.Before(matches[j].Timestamp)
	})
	return matches, nil
}

// Len reports the number of stored events.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Tamper replaces the stored event with the same id. It exists so integrity
// checks can be exercised against a modified ledger.
func (m *MemoryStore) Tamper(id uuid.UUID, mutate func(*Event)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range m.events {
		if event.ID == id {
			mutate(event)
			return true
		}
	}
	return false
}

func (m *MemoryStore) match(filter Filter) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Event, 0, len(m.events))
	for _, event := range m.events {
		if filter.Matches(event) {
			out = append(out, event.Clone())
		}
	}
	return out
}
