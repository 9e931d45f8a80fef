package history

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

func TestPostgresRepository_InsertAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)
	ctx := context.Background()
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	e := &models.ActionEntry{ID: "a1", UserID: "u1", Action: ActionSignin, DeviceInfo: "curl", CreatedAt: at}
	mock.ExpectExec("INSERT INTO action_history").
		WithArgs(e.ID, e.UserID, e.Action, e.DeviceInfo, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Insert(ctx, e))

	mock.ExpectQuery("SELECT COUNT.+ FROM action_history").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery("SELECT id, user_id, action, device_info, created_at FROM action_history").
		WithArgs("u1", 5, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "action", "device_info", "created_at"}).
			AddRow("a1", "u1", ActionSignin, "curl", at))

	items, total, err := repo.List(ctx, "u1", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []models.ActionEntry{*e}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
