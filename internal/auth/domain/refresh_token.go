package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyUserID     = errors.New("user id cannot be empty")
	ErrEmptyTokenValue = errors.New("token cannot be empty")
	ErrExpiryInPast    = errors.New("expiration date must be in the future")
)

// RefreshToken is an opaque long-lived credential bound to one user. Revoking
// is terminal; a token that has been replaced and is presented again is a
// reuse signal handled by the refresh service.
type RefreshToken struct {
	ID              string
	UserID          string
	Token           string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	CreatedByIP     string
	RevokedAt       *time.Time
	RevokedByIP     string
	ReasonRevoked   string
	ReplacedByToken string
}

func NewRefreshToken(userID, token string, expiresAt time.Time, createdByIP string) (*RefreshToken, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyTokenValue
	}
	if !expiresAt.After(time.Now()) {
		return nil, ErrExpiryInPast
	}

	return &RefreshToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Token:       token,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
		CreatedByIP: createdByIP,
	}, nil
}

func (rt *RefreshToken) IsExpired() bool {
	return !time.Now().Before(rt.ExpiresAt)
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsActive() bool {
	return !rt.IsRevoked() && !rt.IsExpired()
}

// Revoke records the terminal revocation state. replacedByToken is the value
// of the successor token when the revocation is part of a rotation; it links
// the rotation chain walked during reuse detection.
func (rt *RefreshToken) Revoke(ipAddress, reason, replacedByToken string) {
	now := time.Now().UTC()
	rt.RevokedAt = &now
	rt.RevokedByIP = ipAddress
	rt.ReasonRevoked = reason
	rt.ReplacedByToken = replacedByToken
}
