package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// DBTX is the subset of *pgxpool.Pool the postgres repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DBTX
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, login, email, password_hash, is_active, is_verified, is_admin, created_at, updated_at`

// CreateUser inserts the user and its links in one transaction.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User, links ...models.UserRole) error {
	if len(links) == 0 {
		return insertUser(ctx, r.db, u)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := insertUser(ctx, tx, u); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	for i := range links {
		if err := insertUserRole(ctx, tx, &links[i]); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, db execer, u *models.User) error {
	_, err := db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg).Scan(
		&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsVerified, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(ctx, "email", email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.scanUser(ctx, "id", id)
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $1, updated_at = now() WHERE id = $2`, admin, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateRole(ctx context.Context, role *models.Role) error {
	_, err := r.db.Exec(ctx, `INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`, role.ID, role.Name, role.Description)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateRole
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.QueryRow(ctx, `SELECT id, name, description FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

func (r *PostgresRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	return r.queryRoles(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
}

func (r *PostgresRepository) AddUserRole(ctx context.Context, link *models.UserRole) error {
	return insertUserRole(ctx, r.db, link)
}

func insertUserRole(ctx context.Context, db execer, link *models.UserRole) error {
	_, err := db.Exec(ctx,
		`INSERT INTO user_roles (id, user_id, role_id) VALUES ($1, $2, $3) ON CONFLICT (user_id, role_id) DO NOTHING`,
		link.ID, link.UserID, link.RoleID,
	)
	if err != nil {
		return fmt.Errorf("insert user role: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UserRoles(ctx context.Context, userID string) ([]models.Role, error) {
	return r.queryRoles(ctx,
		`SELECT r.id, r.name, r.description FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.name`,
		userID,
	)
}

func (r *PostgresRepository) queryRoles(ctx context.Context, query string, args ...any) ([]models.Role, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()
	out := []models.Role{}
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// IsUniqueViolation reports a unique_violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
