// AngelaMos | 2026
// memory.go

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

// MemoryRepository keeps refresh tokens in process. It backs tests and
// single-node development.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*RefreshToken)}
}

func (m *MemoryRepository) Create(_ context.Context, token *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token.CreatedAt = time.Now()
	stored := *token
	m.tokens[token.ID] = &stored
	return nil
}

func (m *MemoryRepository) FindByHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.TokenHash == tokenHash {
			out := *t
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemoryRepository) MarkAsUsed(_ context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok || t.IsUsed {
		return core.ErrNotFound
	}
	now := time.Now()
	t.IsUsed = true
	t.UsedAt = &now
	t.ReplacedByID = &replacedByID
	return nil
}

func (m *MemoryRepository) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tokens[id]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (m *MemoryRepository) RevokeByFamilyID(_ context.Context, familyID string) error {
	return m.revokeWhere(func(t *RefreshToken) bool { return t.FamilyID == familyID })
}

func (m *MemoryRepository) RevokeAllForUser(_ context.Context, userID string) error {
	return m.revokeWhere(func(t *RefreshToken) bool { return t.UserID == userID })
}

func (m *MemoryRepository) revokeWhere(match func(*RefreshToken) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, t := range m.tokens {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}
