// AngelaMos | 2026
// memory.go

package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository used by tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.CreatedAt = time.Now()
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryRepository) List(
	_ context.Context,
	params ListParams,
) ([]Event, int, error) {
	params.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if params.UserID != "" && (e.UserID == nil || *e.UserID != params.UserID) {
			continue
		}
		if params.Action != "" && e.Action != params.Action {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	start := params.Offset()
	if start >= total {
		return []Event{}, total, nil
	}
	end := min(start+params.PageSize, total)
	return matched[start:end], total, nil
}

// Actions lists recorded actions in insertion order.
func (m *MemoryRepository) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

var _ Repository = (*MemoryRepository)(nil)
