package domain

//go:generate mockgen -destination=../../mocks/mock_user_store.go -package=mocks github.com/m-aykurt/bakici-backend/internal/auth/domain UserStore
//go:generate mockgen -destination=../../mocks/mock_refresh_token_store.go -package=mocks github.com/m-aykurt/bakici-backend/internal/auth/domain RefreshTokenStore
//go:generate mockgen -destination=../../mocks/mock_reset_token_store.go -package=mocks github.com/m-aykurt/bakici-backend/internal/auth/domain ResetTokenStore
//go:generate mockgen -destination=../../mocks/mock_notifier.go -package=mocks github.com/m-aykurt/bakici-backend/internal/auth/domain Notifier

import (
	"context"
	"time"
)

// UserStore persists users. Lookups by email are case-insensitive; the store
// enforces email uniqueness. A nil user with a nil error means "not found".
type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalLogin(ctx context.Context, provider, providerKey string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// RefreshTokenStore persists refresh tokens. MarkRevoked is conditional on
// the token not already being revoked so concurrent rotations of the same
// token are serialized by the database: exactly one caller wins.
type RefreshTokenStore interface {
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	GetActiveByUserID(ctx context.Context, userID string) ([]*RefreshToken, error)
	Add(ctx context.Context, rt *RefreshToken) error
	MarkRevoked(ctx context.Context, rt *RefreshToken) (bool, error)
	DeleteAllByUserID(ctx context.Context, userID string) error
}

// ResetTokenStore persists password reset tokens. Consume marks the token
// used and updates the user's password hash in a single transaction.
type ResetTokenStore interface {
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	GetValidByUserID(ctx context.Context, userID string) (*PasswordResetToken, error)
	Add(ctx context.Context, t *PasswordResetToken) error
	Consume(ctx context.Context, tokenID, userID, newPasswordHash string) error
	DeleteAllByUserID(ctx context.Context, userID string) error
}

// Notifier delivers the password reset link. Fire-and-forget from the
// caller's perspective; failures are logged, never surfaced.
type Notifier interface {
	SendPasswordResetLink(ctx context.Context, email, url string) error
}
