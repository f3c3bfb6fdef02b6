// AngelaMos | 2026
// memory.go

package image

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	images map[string]Image
	tick   time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		images: make(map[string]Image),
		tick:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemoryRepository) next() time.Time {
	m.tick = m.tick.Add(time.Second)
	return m.tick
}

func (m *MemoryRepository) Create(_ context.Context, img *Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.images[img.ID]; ok {
		return fmt.Errorf("create image: %w", core.ErrDuplicateKey)
	}

	now := m.next()
	img.CreatedAt = now
	img.UpdatedAt = now
	m.images[img.ID] = *img
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[id]
	if !ok {
		return nil, fmt.Errorf("get image: %w", core.ErrNotFound)
	}
	return &img, nil
}

func (m *MemoryRepository) GetForUser(_ context.Context, id, userID string) (*Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[id]
	if !ok || img.UserID != userID {
		return nil, fmt.Errorf("get image: %w", core.ErrNotFound)
	}
	return &img, nil
}

func (m *MemoryRepository) ListByUser(
	_ context.Context,
	userID string,
	limit, offset int,
) ([]Image, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := []Image{}
	for _, img := range m.images {
		if img.UserID == userID {
			owned = append(owned, img)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := len(owned)
	if offset >= total {
		return []Image{}, total, nil
	}
	end := min(offset+limit, total)
	return owned[offset:end], total, nil
}

func (m *MemoryRepository) Update(_ context.Context, img *Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.images[img.ID]
	if !ok {
		return fmt.Errorf("update image: %w", core.ErrNotFound)
	}

	stored.ProcessedURL = img.ProcessedURL
	stored.Status = img.Status
	stored.LastEditPrompt = img.LastEditPrompt
	stored.UpdatedAt = m.next()
	img.UpdatedAt = stored.UpdatedAt
	m.images[img.ID] = stored
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.images[id]
	if !ok || img.UserID != userID {
		return fmt.Errorf("delete image: %w", core.ErrNotFound)
	}
	delete(m.images, id)
	return nil
}

func (m *MemoryRepository) CountByStatus(
	_ context.Context,
	since time.Time,
) ([]StatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byStatus := map[string]int{}
	for _, img := range m.images {
		if !img.CreatedAt.Before(since) {
			byStatus[img.Status]++
		}
	}

	counts := make([]StatusCount, 0, len(byStatus))
	for status, n := range byStatus {
		counts = append(counts, StatusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}

var _ Repository = (*MemoryRepository)(nil)
