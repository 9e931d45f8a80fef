package history

import (
	"context"
	"sort"
	"sync"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]models.ActionEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: map[string][]models.ActionEntry{}}
}

func (m *MemoryRepository) Insert(ctx context.Context, e *models.ActionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.UserID] = append(m.entries[e.UserID], *e)
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, userID string, offset, limit int) ([]models.ActionEntry, int64, error) {
	m.mu.RLock()
	all := append([]models.ActionEntry(nil), m.entries[userID]...)
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	out := []models.ActionEntry{}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		out = append(out, all[offset:end]...)
	}
	return out, total, nil
}
