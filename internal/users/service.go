package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
)

// Service encapsulates user and role logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// SeedRoles creates the configured roles. Roles that already exist are kept
// as they are, so seeding is safe on every start.
func (s *Service) SeedRoles(ctx context.Context, roles []config.InitialRole) error {
	for _, r := range roles {
		if _, err := s.EnsureRole(ctx, r.Name, r.Description); err != nil {
			return fmt.Errorf("seed role %q: %w", r.Name, err)
		}
	}
	logger.Infof("roles seeded: %d", len(roles))
	return nil
}

// EnsureRole returns the named role, creating it when missing.
func (s *Service) EnsureRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty role name")
	}
	role, err := s.repo.FindRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	role = &models.Role{ID: uuid.NewString(), Name: name, Description: description}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, ErrDuplicateRole) {
			// created concurrently
			return s.repo.FindRoleByName(ctx, name)
		}
		return nil, err
	}
	return role, nil
}

// CreateRole adds a new role; ErrDuplicateRole when the name is taken.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	role := &models.Role{ID: uuid.NewString(), Name: strings.TrimSpace(name), Description: description}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Roles lists every role.
func (s *Service) Roles(ctx context.Context) ([]models.Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateUser stores u linked to roleName (no link when empty) in one
// repository call, so an account never exists without its role. ID and
// timestamps are filled in. The insert either wins the email or fails with
// ErrDuplicateEmail.
func (s *Service) CreateUser(ctx context.Context, u *models.User, roleName string) (*models.User, error) {
	now := s.now().UTC()
	u.Email = NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	var links []models.UserRole
	if roleName != "" {
		role, err := s.repo.FindRoleByName(ctx, roleName)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", roleName, err)
		}
		links = append(links, models.UserRole{ID: uuid.NewString(), UserID: u.ID, RoleID: role.ID})
	}
	if err := s.repo.CreateUser(ctx, u, links...); err != nil {
		return nil, err
	}
	return u, nil
}

// AssignRole grants roleName to the user. ErrNotFound when either is missing.
func (s *Service) AssignRole(ctx context.Context, userID, roleName string) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.repo.AddUserRole(ctx, &models.UserRole{ID: uuid.NewString(), UserID: userID, RoleID: role.ID})
}

// RoleNames returns the names of the user's roles, never nil.
func (s *Service) RoleNames(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.repo.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.RoleNames(roles), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// SetAdminByEmail toggles the admin flag; used by the admin CLI.
func (s *Service) SetAdminByEmail(ctx context.Context, email string, admin bool) (*models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAdmin(ctx, u.ID, admin); err != nil {
		return nil, err
	}
	u.IsAdmin = admin
	return u, nil
}

// GrantAdmin sets the admin flag and, when adminRole is not empty, links the
// account to that role as well.
func (s *Service) GrantAdmin(ctx context.Context, email, adminRole string) (*models.User, error) {
	u, err := s.SetAdminByEmail(ctx, email, true)
	if err != nil {
		return nil, err
	}
	if adminRole == "" {
		return u, nil
	}
	if err := s.AssignRole(ctx, u.ID, adminRole); err != nil {
		return nil, fmt.Errorf("role %q: %w", adminRole, err)
	}
	return u, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// NormalizeEmail lower-cases and trims an address before lookups and inserts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
