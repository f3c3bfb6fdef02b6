// AngelaMos | 2026
// memory.go

package user

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

func (m *MemoryRepository) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.DeletedAt == nil && u.Email == user.Email {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.DeletedAt == nil && u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (m *MemoryRepository) Update(_ context.Context, user *User) error {
	return m.mutate(user.ID, func(u *User) {
		u.FullName = user.FullName
		u.Role = user.Role
		u.IsActive = user.IsActive
		user.UpdatedAt = time.Now()
		u.UpdatedAt = user.UpdatedAt
	})
}

func (m *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.mutate(id, func(u *User) { u.PasswordHash = passwordHash })
}

func (m *MemoryRepository) IncrementTokenVersion(_ context.Context, id string) error {
	return m.mutate(id, func(u *User) { u.TokenVersion++ })
}

func (m *MemoryRepository) SoftDelete(_ context.Context, id string) error {
	return m.mutate(id, func(u *User) {
		now := time.Now()
		u.DeletedAt = &now
		u.IsActive = false
	})
}

func (m *MemoryRepository) mutate(id string, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *MemoryRepository) List(_ context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(params.Search)
	matched := []User{}
	for _, u := range m.users {
		if u.DeletedAt != nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FullName), search) {
			continue
		}
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		if params.Active != nil && u.IsActive != *params.Active {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	total := len(matched)
	start := params.Offset()
	if start >= total {
		return []User{}, total, nil
	}
	return matched[start:min(start+params.PageSize, total)], total, nil
}

func (m *MemoryRepository) Counts(_ context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var c Counts
	for _, u := range m.users {
		if u.DeletedAt != nil {
			continue
		}
		c.Total++
		if u.IsActive {
			c.Active++
		}
	}
	return c, nil
}

var _ Repository = (*MemoryRepository)(nil)
