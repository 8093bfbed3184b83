package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
)

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone_number,
		user_type, email_verified, phone_verified, is_active, created_at, last_login_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`

	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1) LIMIT 1;`

	return r.getOne(ctx, query, email)
}

func (r *UserRepository) GetByExternalLogin(ctx context.Context, provider, providerKey string) (*domain.User, error) {
	query := `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.phone_number,
			u.user_type, u.email_verified, u.phone_verified, u.is_active, u.created_at, u.last_login_at
		FROM users u
		JOIN external_logins el ON el.user_id = u.id
		WHERE el.provider = $1 AND el.provider_key = $2
		LIMIT 1;`

	return r.getOne(ctx, query, provider, providerKey)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = LOWER($1));`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

func (r *UserRepository) Add(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone_number,
			user_type, email_verified, phone_verified, is_active, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.PhoneNumber,
		user.UserType, user.EmailVerified, user.PhoneVerified, user.IsActive, user.CreatedAt, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := insertRolesAndLogins(ctx, tx, user); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update rewrites the user row together with its role and external-login
// sets in one transaction.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
			phone_number = $6, user_type = $7, email_verified = $8,
			phone_verified = $9, is_active = $10, last_login_at = $11
		WHERE id = $1
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.UserType, user.EmailVerified, user.PhoneVerified,
		user.IsActive, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM external_logins WHERE user_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to clear external logins: %w", err)
	}

	if err := insertRolesAndLogins(ctx, tx, user); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *UserRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), LOWER($1), $2, now(), $3)
	`, email, ip, success)

	return err
}

func (r *UserRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	var count int

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = LOWER($1) AND successful = FALSE AND attempt_time > $2
	`, email, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}

	return count, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	row := r.db.QueryRow(ctx, query, args...)

	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.PhoneNumber, &user.UserType, &user.EmailVerified, &user.PhoneVerified,
		&user.IsActive, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}
	if err := r.loadExternalLogins(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) loadRoles(ctx context.Context, user *domain.User) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, role_name, created_at FROM user_roles WHERE user_id = $1
	`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role domain.UserRole
		if err := rows.Scan(&role.ID, &role.UserID, &role.RoleName, &role.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}

		user.Roles = append(user.Roles, role)
	}

	return rows.Err()
}

func (r *UserRepository) loadExternalLogins(ctx context.Context, user *domain.User) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, provider, provider_key, created_at, last_used_at
		FROM external_logins WHERE user_id = $1
	`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load external logins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var el domain.ExternalLogin
		if err := rows.Scan(&el.ID, &el.UserID, &el.Provider, &el.ProviderKey, &el.CreatedAt, &el.LastUsedAt); err != nil {
			return fmt.Errorf("failed to scan external login: %w", err)
		}

		user.ExternalLogins = append(user.ExternalLogins, el)
	}

	return rows.Err()
}

func insertRolesAndLogins(ctx context.Context, tx pgx.Tx, user *domain.User) error {
	for _, role := range user.Roles {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_roles (id, user_id, role_name, created_at)
			VALUES ($1, $2, $3, $4)
		`, role.ID, role.UserID, role.RoleName, role.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert role: %w", err)
		}
	}

	for _, el := range user.ExternalLogins {
		_, err := tx.Exec(ctx, `
			INSERT INTO external_logins (id, user_id, provider, provider_key, created_at, last_used_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, el.ID, el.UserID, el.Provider, el.ProviderKey, el.CreatedAt, el.LastUsedAt)
		if err != nil {
			return fmt.Errorf("failed to insert external login: %w", err)
		}
	}

	return nil
}
