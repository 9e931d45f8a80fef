package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

func newPostgresFixture(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func pgSampleUser() *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		ID:           "u-1",
		Login:        "Alice 1001",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgres_CreateUser(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateUser(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_DuplicateEmailFromConstraint(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_email_key\""})

	err := repo.CreateUser(context.Background(), u)
	assert.True(t, errors.Is(err, ErrDuplicateEmail), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_WithRoleCommits(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()
	link := models.UserRole{ID: "ur-1", UserID: u.ID, RoleID: "r-user"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(link.ID, link.UserID, link.RoleID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateUser(context.Background(), u, link))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_RoleLinkFailureRollsBack(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()
	link := models.UserRole{ID: "ur-1", UserID: u.ID, RoleID: "r-user"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(link.ID, link.UserID, link.RoleID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CreateUser(context.Background(), u, link)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_DuplicateInTransactionRollsBack(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateUser(context.Background(), u, models.UserRole{ID: "ur-1", UserID: u.ID, RoleID: "r-user"})
	assert.True(t, errors.Is(err, ErrDuplicateEmail), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByEmail(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	u := pgSampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows([]string{"id", "login", "email", "password_hash", "is_active", "is_verified", "is_admin", "created_at", "updated_at"}).
			AddRow(u.ID, u.Login, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.IsAdmin, u.CreatedAt, u.UpdatedAt))

	got, err := repo.FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByID_NotFound(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetAdmin_NotFound(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(true, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.True(t, errors.Is(repo.SetAdmin(context.Background(), "missing", true), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateRole_Duplicate(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectExec("INSERT INTO roles").
		WithArgs("r-1", "user", "Registered user").
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.CreateRole(context.Background(), &models.Role{ID: "r-1", Name: "user", Description: "Registered user"})
	assert.True(t, errors.Is(err, ErrDuplicateRole))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddUserRoleIgnoresConflict(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectExec("INSERT INTO user_roles .+ ON CONFLICT").
		WithArgs("ur-1", "u-1", "r-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, repo.AddUserRole(context.Background(), &models.UserRole{ID: "ur-1", UserID: "u-1", RoleID: "r-1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UserRoles(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectQuery("SELECT .+ FROM roles r JOIN user_roles ur").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}).
			AddRow("r-1", "subscriber", "Premium").
			AddRow("r-2", "user", "Registered"))

	roles, err := repo.UserRoles(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"subscriber", "user"}, models.RoleNames(roles))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRolesEmpty(t *testing.T) {
	repo, mock := newPostgresFixture(t)

	mock.ExpectQuery("SELECT id, name, description FROM roles ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}))

	roles, err := repo.ListRoles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	repo, mock := newPostgresFixture(t)
	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
}
