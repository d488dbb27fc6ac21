package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/outbox"
)

// InMemory keeps outbox entries in insertion order for tests and dev mode.
type InMemory struct {
	mu      sync.Mutex
	entries []*outbox.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemory) FetchPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, e := range s.entries {
		if e.IsPublished() {
			continue
		}
		out = append(out, *e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, e := range s.entries {
		if _, ok := want[e.ID]; ok && e.PublishedAt == nil {
			t := at
			e.PublishedAt = &t
		}
	}
	return nil
}

// All returns every entry, published or not.
func (s *InMemory) All() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// ByType returns entries of the given event type.
func (s *InMemory) ByType(eventType string) []outbox.Entry {
	var out []outbox.Entry
	for _, e := range s.All() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
