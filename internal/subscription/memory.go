// AngelaMos | 2026
// memory.go

package subscription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

// MemoryRepository is an in-process Repository used by tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	subs   []Subscription
	writes int
	clock  time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{clock: time.Unix(1_700_000_000, 0).UTC()}
}

// tick returns a strictly increasing timestamp so created_at ordering is
// deterministic.
func (m *MemoryRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MemoryRepository) Create(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	m.subs = append(m.subs, *sub)
	m.writes++
	return nil
}

func (m *MemoryRepository) Current(
	_ context.Context,
	userID string,
) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latest(func(s *Subscription) bool { return s.UserID == userID })
}

func (m *MemoryRepository) GetByCustomerRef(
	_ context.Context,
	customerRef string,
) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latest(func(s *Subscription) bool {
		return s.ExternalCustomerRef != nil && *s.ExternalCustomerRef == customerRef
	})
}

func (m *MemoryRepository) ListByUser(
	_ context.Context,
	userID string,
) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Subscription{}
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.subs {
		if m.subs[i].ID == sub.ID {
			sub.UpdatedAt = m.tick()
			m.subs[i] = *sub
			m.writes++
			return nil
		}
	}
	return fmt.Errorf("update subscription: %w", core.ErrNotFound)
}

func (m *MemoryRepository) CountByPlan(_ context.Context) ([]PlanCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current := map[string]Subscription{}
	for _, s := range m.subs {
		if c, ok := current[s.UserID]; !ok || !s.CreatedAt.Before(c.CreatedAt) {
			current[s.UserID] = s
		}
	}

	counts := map[[2]string]int{}
	for _, s := range current {
		counts[[2]string{s.Plan, s.Status}]++
	}

	out := make([]PlanCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PlanCount{Plan: k[0], Status: k[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plan != out[j].Plan {
			return out[i].Plan < out[j].Plan
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// Writes counts successful Create and Update calls.
func (m *MemoryRepository) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryRepository) latest(
	match func(*Subscription) bool,
) (*Subscription, error) {
	var found *Subscription
	for i := range m.subs {
		s := &m.subs[i]
		if !match(s) {
			continue
		}
		if found == nil || !s.CreatedAt.Before(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, fmt.Errorf("subscription: %w", core.ErrNotFound)
	}

	cp := *found
	return &cp, nil
}

var _ Repository = (*MemoryRepository)(nil)
