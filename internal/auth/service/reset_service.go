package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
)

// ResetService manages single-use password reset tokens.
type ResetService struct {
	store domain.ResetTokenStore
	ttl   time.Duration
	log   *zap.Logger
}

func NewResetService(store domain.ResetTokenStore, ttl time.Duration, log *zap.Logger) *ResetService {
	return &ResetService{
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// Issue returns the user's most recently created outstanding reset token,
// creating and persisting a fresh one only when none is valid. Re-requesting
// a reset therefore re-sends the same link instead of stacking tokens.
func (s *ResetService) Issue(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	existing, err := s.store.GetValidByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	token, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	t, err := domain.NewPasswordResetToken(userID, token, s.ttl)
	if err != nil {
		return nil, err
	}

	if err := s.store.Add(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return t, nil
}

// Redeem consumes the token and installs the new password hash. The mark-used
// and password writes happen in one store transaction, so a partial failure
// never leaves the token burned with the password unchanged. Used, expired
// and unknown tokens all fail with the same error so callers cannot tell
// which check rejected them.
func (s *ResetService) Redeem(ctx context.Context, token, newPasswordHash string) (string, error) {
	t, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", autherror.ErrResetTokenInvalid
	}

	if err := t.MarkAsUsed(); err != nil {
		s.log.Info("reset token rejected",
			zap.String("token_id", t.ID),
			zap.String("user_id", t.UserID),
			zap.Error(err))

		return "", autherror.ErrResetTokenInvalid
	}

	if err := s.store.Consume(ctx, t.ID, t.UserID, newPasswordHash); err != nil {
		// A concurrent redemption can win between the read and the
		// conditional update; that is a rejection, not a server fault.
		if errors.Is(err, autherror.ErrResetTokenConflict) {
			s.log.Info("reset token consumed concurrently",
				zap.String("token_id", t.ID),
				zap.String("user_id", t.UserID))

			return "", autherror.ErrResetTokenInvalid
		}

		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}

	return t.UserID, nil
}
