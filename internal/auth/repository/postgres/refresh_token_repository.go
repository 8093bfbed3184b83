package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
)

type RefreshTokenRepository struct {
	db DB
}

func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const refreshTokenColumns = `id, user_id, token, expires_at, created_at, created_by_ip,
		revoked_at, COALESCE(revoked_by_ip, ''), COALESCE(reason_revoked, ''), COALESCE(replaced_by_token, '')`

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1;`

	row := r.db.QueryRow(ctx, query, token)

	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt, &rt.CreatedByIP,
		&rt.RevokedAt, &rt.RevokedByIP, &rt.ReasonRevoked, &rt.ReplacedByToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &rt, nil
}

func (r *RefreshTokenRepository) GetActiveByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now();`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.RefreshToken
	for rows.Next() {
		var rt domain.RefreshToken
		err := rows.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt, &rt.CreatedByIP,
			&rt.RevokedAt, &rt.RevokedByIP, &rt.ReasonRevoked, &rt.ReplacedByToken)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}

		tokens = append(tokens, &rt)
	}

	return tokens, rows.Err()
}

func (r *RefreshTokenRepository) Add(ctx context.Context, rt *domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, created_by_ip)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rt.ID, rt.UserID, rt.Token, rt.ExpiresAt, rt.CreatedAt, rt.CreatedByIP)

	return err
}

// MarkRevoked persists the revocation state recorded on rt, but only if the
// row is still unrevoked. The row-level condition is what serializes
// concurrent rotations of the same token: the returned bool is false for
// every caller except the one whose update landed first.
func (r *RefreshTokenRepository) MarkRevoked(ctx context.Context, rt *domain.RefreshToken) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, reason_revoked = $4, replaced_by_token = $5
		WHERE id = $1 AND revoked_at IS NULL
	`, rt.ID, rt.RevokedAt, rt.RevokedByIP, rt.ReasonRevoked, nullIfEmpty(rt.ReplacedByToken))
	if err != nil {
		return false, fmt.Errorf("failed to mark refresh token revoked: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RefreshTokenRepository) DeleteAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)

	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}
