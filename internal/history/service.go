package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
)

// Actions recorded by the auth flows.
const (
	ActionSignup     = "signup"
	ActionSignin     = "signin"
	ActionRefresh    = "refresh"
	ActionSignout    = "signout"
	ActionSignoutAll = "signout_all"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is one page of a user's history.
type Page struct {
	Items   []models.ActionEntry `json:"items"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Total   int64                `json:"total"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record stores an action. A failure is logged and swallowed: history must
// never block a signin or signout.
func (s *Service) Record(ctx context.Context, userID, action, deviceInfo string) {
	e := &models.ActionEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		DeviceInfo: deviceInfo,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		logger.Warnf("history: record %s for user %s: %v", action, userID, err)
	}
}

// List returns the 1-based page of the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string, page, perPage int) (*Page, error) {
	if page < 1 {
		return nil, apperrors.History("Page must be positive.")
	}
	if perPage < 1 || perPage > MaxPerPage {
		return nil, apperrors.History("Page size must be between 1 and 100.")
	}
	items, total, err := s.repo.List(ctx, userID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindHistory, "History error. Could not load history.", err)
	}
	return &Page{Items: items, Page: page, PerPage: perPage, Total: total}, nil
}
