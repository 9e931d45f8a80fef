package users

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// MemoryRepository is an in-process Repository for development and tests.
// The mutex plays the part of the unique indexes.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]models.User
	byEmail   map[string]string
	roles     map[string]models.Role
	byName    map[string]string
	userRoles map[string]map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     map[string]models.User{},
		byEmail:   map[string]string{},
		roles:     map[string]models.Role{},
		byName:    map[string]string{},
		userRoles: map[string]map[string]struct{}{},
	}
}

func (m *MemoryRepository) CreateUser(ctx context.Context, u *models.User, links ...models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	for _, l := range links {
		if _, ok := m.roles[l.RoleID]; !ok || l.UserID != u.ID {
			return fmt.Errorf("link role %s: %w", l.RoleID, ErrNotFound)
		}
	}
	m.users[u.ID] = *u
	m.byEmail[u.Email] = u.ID
	for _, l := range links {
		m.link(l.UserID, l.RoleID)
	}
	return nil
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsAdmin = admin
	m.users[id] = u
	return nil
}

func (m *MemoryRepository) CreateRole(ctx context.Context, r *models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[r.Name]; ok {
		return ErrDuplicateRole
	}
	m.roles[r.ID] = *r
	m.byName[r.Name] = r.ID
	return nil
}

func (m *MemoryRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	r := m.roles[id]
	return &r, nil
}

func (m *MemoryRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sortRoles(out)
	return out, nil
}

func (m *MemoryRepository) AddUserRole(ctx context.Context, link *models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[link.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.roles[link.RoleID]; !ok {
		return ErrNotFound
	}
	m.link(link.UserID, link.RoleID)
	return nil
}

func (m *MemoryRepository) link(userID, roleID string) {
	set, ok := m.userRoles[userID]
	if !ok {
		set = map[string]struct{}{}
		m.userRoles[userID] = set
	}
	set[roleID] = struct{}{}
}

func (m *MemoryRepository) UserRoles(ctx context.Context, userID string) ([]models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Role{}
	for roleID := range m.userRoles[userID] {
		out = append(out, m.roles[roleID])
	}
	sortRoles(out)
	return out, nil
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func sortRoles(rs []models.Role) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
}
