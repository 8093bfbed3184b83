package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrResetTokenUsed    = errors.New("token has already been used")
	ErrResetTokenExpired = errors.New("token has expired")
)

// PasswordResetToken is a single-use credential. MarkAsUsed is the only state
// transition and it can succeed at most once.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
}

func NewPasswordResetToken(userID, token string, expiresIn time.Duration) (*PasswordResetToken, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyTokenValue
	}

	now := time.Now().UTC()

	return &PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}, nil
}

func (t *PasswordResetToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

func (t *PasswordResetToken) IsValid() bool {
	return !t.IsUsed && !t.IsExpired()
}

func (t *PasswordResetToken) MarkAsUsed() error {
	if t.IsUsed {
		return ErrResetTokenUsed
	}
	if t.IsExpired() {
		return ErrResetTokenExpired
	}

	now := time.Now().UTC()
	t.IsUsed = true
	t.UsedAt = &now

	return nil
}
