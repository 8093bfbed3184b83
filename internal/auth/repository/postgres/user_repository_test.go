package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	repo "github.com/m-aykurt/bakici-backend/internal/auth/repository/postgres"
)

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone_number",
	"user_type", "email_verified", "phone_verified", "is_active", "created_at", "last_login_at",
}

func userRow(id, email string) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).
		AddRow(id, email, "hash", "Alice", "Smith", "",
			"family", false, false, true, time.Now(), nil)
}

func expectEmptyAssociations(mock pgxmock.PgxPoolIface, userID string) {
	mock.ExpectQuery("SELECT id, user_id, role_name").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "role_name", "created_at"}))
	mock.ExpectQuery("SELECT id, user_id, provider").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "provider", "provider_key", "created_at", "last_used_at"}))
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)
	ctx := context.Background()

	t.Run("success with roles", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email").
			WithArgs("alice@example.com").
			WillReturnRows(userRow("user-123", "alice@example.com"))
		mock.ExpectQuery("SELECT id, user_id, role_name").
			WithArgs("user-123").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "role_name", "created_at"}).
				AddRow("role-1", "user-123", "Family", time.Now()))
		mock.ExpectQuery("SELECT id, user_id, provider").
			WithArgs("user-123").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "provider", "provider_key", "created_at", "last_used_at"}))

		user, err := r.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-123", user.ID)
		assert.True(t, user.HasRole("Family"))
		assert.Nil(t, user.LastLoginAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email").
			WithArgs("ghost@example.com").
			WillReturnError(pgx.ErrNoRows)

		user, err := r.GetByEmail(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email").
			WithArgs("alice@example.com").
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.GetByEmail(ctx, "alice@example.com")
		assert.Error(t, err)
	})
}

func TestUserRepository_GetByExternalLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	mock.ExpectQuery("SELECT u.id, u.email").
		WithArgs("google", "google-key").
		WillReturnRows(userRow("user-123", "alice@example.com"))
	expectEmptyAssociations(mock, "user-123")

	user, err := r.GetByExternalLogin(context.Background(), "google", "google-key")
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := r.ExistsByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_Add(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	user, err := domain.NewUser("alice@example.com", "hash", "Alice", "Smith", "", "family")
	require.NoError(t, err)
	require.NoError(t, user.AddRole("Family"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Add(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Update rewrites the role and external-login sets inside the same
// transaction as the user row.
func TestUserRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	user, err := domain.NewUser("alice@example.com", "hash", "Alice", "Smith", "", "family")
	require.NoError(t, err)
	require.NoError(t, user.AddRole("Family"))
	require.NoError(t, user.AddExternalLogin("google", "google-key"))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs(user.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM external_logins").
		WithArgs(user.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO external_logins").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Update(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	user, err := domain.NewUser("alice@example.com", "hash", "Alice", "Smith", "", "family")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").
		WillReturnError(fmt.Errorf("constraint violation"))
	mock.ExpectRollback()

	assert.Error(t, r.Update(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RecordLoginAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)

	mock.ExpectExec("INSERT INTO login_attempts").
		WithArgs("alice@example.com", "1.2.3.4", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.RecordLoginAttempt(context.Background(), "alice@example.com", "1.2.3.4", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CountRecentFailures(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewUserRepository(mock)
	since := time.Now().Add(-15 * time.Minute)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("alice@example.com", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := r.CountRecentFailures(context.Background(), "alice@example.com", since)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
