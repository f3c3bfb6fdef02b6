// AngelaMos | 2026
// memory.go

package edit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]Request
	tick     time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		requests: make(map[string]Request),
		tick:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemoryRepository) next() time.Time {
	m.tick = m.tick.Add(time.Second)
	return m.tick
}

func (m *MemoryRepository) Create(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.next()
	req.CreatedAt = now
	req.UpdatedAt = now
	m.requests[req.ID] = *req
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("get edit request: %w", core.ErrNotFound)
	}
	return &req, nil
}

func (m *MemoryRepository) ListByImage(_ context.Context, imageID string) ([]Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Request{}
	for _, req := range m.requests {
		if req.ImageID == imageID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[req.ID]; !ok {
		return fmt.Errorf("update edit request: %w", core.ErrNotFound)
	}
	req.UpdatedAt = m.next()
	m.requests[req.ID] = *req
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
