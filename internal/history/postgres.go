package history

import (
	"context"
	"fmt"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
)

// PostgresRepository implements Repository on the action_history table.
type PostgresRepository struct {
	db users.DBTX
}

func NewPostgresRepository(db users.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.ActionEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO action_history (id, user_id, action, device_info, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.Action, e.DeviceInfo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, offset, limit int) ([]models.ActionEntry, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM action_history WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, action, device_info, created_at FROM action_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()
	out := []models.ActionEntry{}
	for rows.Next() {
		var e models.ActionEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.DeviceInfo, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
