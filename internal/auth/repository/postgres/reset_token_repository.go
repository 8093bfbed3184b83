package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
)

type ResetTokenRepository struct {
	db DB
}

func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

const resetTokenColumns = `id, user_id, token, expires_at, created_at, is_used, used_at`

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	query := `SELECT ` + resetTokenColumns + ` FROM password_reset_tokens WHERE token = $1 LIMIT 1;`

	return r.getOne(ctx, query, token)
}

// GetValidByUserID returns the most recently created token that is neither
// used nor expired, or nil when the user has none outstanding.
func (r *ResetTokenRepository) GetValidByUserID(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	query := `SELECT ` + resetTokenColumns + `
		FROM password_reset_tokens
		WHERE user_id = $1 AND is_used = FALSE AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1;`

	return r.getOne(ctx, query, userID)
}

func (r *ResetTokenRepository) Add(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, created_at, is_used, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt, t.IsUsed, t.UsedAt)

	return err
}

// Consume marks the token used and updates the user's password hash in one
// transaction. The conditional update on the token row means only one
// redemption of a given token can ever commit.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenID, userID, newPasswordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET is_used = TRUE, used_at = now()
		WHERE id = $1 AND is_used = FALSE AND expires_at > now()
	`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrResetTokenConflict
	}

	tag, err = tx.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, newPasswordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found for password reset", userID)
	}

	return tx.Commit(ctx)
}

func (r *ResetTokenRepository) DeleteAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)

	return err
}

func (r *ResetTokenRepository) getOne(ctx context.Context, query string, args ...any) (*domain.PasswordResetToken, error) {
	row := r.db.QueryRow(ctx, query, args...)

	var t domain.PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.IsUsed, &t.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return &t, nil
}
