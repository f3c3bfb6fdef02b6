// AngelaMos | 2026
// memory.go

package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps the ledger in process memory. It backs unit tests
// across packages that need a real ledger without Postgres.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (m *MemoryRepository) Insert(_ context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.CreatedAt = m.now()
	m.records = append(m.records, *record)
	return nil
}

func (m *MemoryRepository) SumByReason(
	_ context.Context,
	userID, reason string,
) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, r := range m.records {
		if r.UserID == userID && r.Reason == reason {
			total += r.ImagesConsumed
		}
	}
	return total, nil
}

func (m *MemoryRepository) Totals(
	_ context.Context,
	userID string,
) (Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var t Totals
	for _, r := range m.records {
		if r.UserID != userID {
			continue
		}
		t.add(r)
	}
	return t, nil
}

func (m *MemoryRepository) List(
	_ context.Context,
	userID string,
	limit, offset int,
) ([]Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []Record
	for _, r := range m.records {
		if r.UserID == userID {
			owned = append(owned, r)
		}
	}

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := len(owned)
	if offset >= total {
		return []Record{}, total, nil
	}
	end := min(offset+limit, total)

	return owned[offset:end], total, nil
}

func (m *MemoryRepository) PlatformTotals(
	_ context.Context,
	since time.Time,
) (Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var t Totals
	for _, r := range m.records {
		if r.CreatedAt.Before(since) {
			continue
		}
		t.add(r)
	}
	return t, nil
}

// Len reports how many records have been appended.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (t *Totals) add(r Record) {
	switch r.Reason {
	case ReasonUpload:
		t.Uploaded += r.ImagesConsumed
	case ReasonEdit:
		t.Edited += r.ImagesConsumed
	}
}

var _ Repository = (*MemoryRepository)(nil)
