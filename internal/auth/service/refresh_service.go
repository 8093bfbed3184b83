package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
	"github.com/m-aykurt/bakici-backend/pkg/constant"
)

const refreshTokenRawSize = 48

// RefreshService manages the opaque refresh token lifecycle: issuance,
// rotation with reuse detection, and revocation.
type RefreshService struct {
	store domain.RefreshTokenStore
	ttl   time.Duration
	log   *zap.Logger
}

func NewRefreshService(store domain.RefreshTokenStore, ttl time.Duration, log *zap.Logger) *RefreshService {
	return &RefreshService{
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// Issue creates and persists a fresh refresh token for the user.
func (s *RefreshService) Issue(ctx context.Context, userID, ip string) (*domain.RefreshToken, error) {
	token, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	rt, err := domain.NewRefreshToken(userID, token, time.Now().Add(s.ttl), ip)
	if err != nil {
		return nil, err
	}

	if err := s.store.Add(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rt, nil
}

// Rotate exchanges a presented refresh token for a new one. Presenting an
// already-rotated token is treated as theft: every descendant reachable
// through the ReplacedByToken links is revoked before the call fails.
func (s *RefreshService) Rotate(ctx context.Context, presentedToken, ip string) (*domain.RefreshToken, error) {
	rt, err := s.store.GetByToken(ctx, presentedToken)
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if rt.IsRevoked() {
		// A revoked token that has not expired yet looks usable to whoever
		// presents it, so treat it as a reuse signal. A stale token that is
		// both expired and revoked is not.
		if !rt.IsExpired() {
			s.log.Warn("refresh token reuse detected",
				zap.String("token_id", rt.ID),
				zap.String("user_id", rt.UserID),
				zap.String("ip", ip))
			s.revokeDescendants(ctx, rt, ip)

			return nil, autherror.ErrRefreshTokenReused
		}

		return nil, autherror.ErrRefreshTokenExpired
	}

	if rt.IsExpired() {
		return nil, autherror.ErrRefreshTokenExpired
	}

	token, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	newRT, err := domain.NewRefreshToken(rt.UserID, token, time.Now().Add(s.ttl), ip)
	if err != nil {
		return nil, err
	}

	// Revoke the presented token first, conditionally on it still being
	// unrevoked. The successor is only persisted if this call wins; a loser
	// racing on the same token sees zero rows updated and takes the reuse path.
	rt.Revoke(ip, constant.RevokeReasonRotated, newRT.Token)

	revoked, err := s.store.MarkRevoked(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke rotated token: %w", err)
	}
	if !revoked {
		// Re-read so the chain walk starts from the winner's replacement,
		// not the successor this call never persisted.
		if fresh, ferr := s.store.GetByToken(ctx, presentedToken); ferr == nil && fresh != nil {
			s.revokeDescendants(ctx, fresh, ip)
		}

		return nil, autherror.ErrRefreshTokenReused
	}

	if err := s.store.Add(ctx, newRT); err != nil {
		return nil, fmt.Errorf("failed to store rotated token: %w", err)
	}

	return newRT, nil
}

// Revoke marks a single token revoked. Revoking an already-revoked token is
// a no-op.
func (s *RefreshService) Revoke(ctx context.Context, token, ip, reason string) error {
	rt, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if rt == nil {
		return autherror.ErrRefreshTokenNotFound
	}

	if rt.IsRevoked() {
		return nil
	}

	rt.Revoke(ip, reason, "")

	if _, err := s.store.MarkRevoked(ctx, rt); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllForUser invalidates every active token the user still holds.
func (s *RefreshService) RevokeAllForUser(ctx context.Context, userID, ip, reason string) error {
	active, err := s.store.GetActiveByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for _, rt := range active {
		rt.Revoke(ip, reason, "")
		if _, err := s.store.MarkRevoked(ctx, rt); err != nil {
			return fmt.Errorf("failed to revoke token %s: %w", rt.ID, err)
		}
	}

	return nil
}

// revokeDescendants walks the rotation chain starting at rt and revokes every
// token that descended from it. Errors are logged, not returned: chain
// revocation is best effort and the presented token is rejected regardless.
func (s *RefreshService) revokeDescendants(ctx context.Context, rt *domain.RefreshToken, ip string) {
	current := rt
	for current.ReplacedByToken != "" {
		next, err := s.store.GetByToken(ctx, current.ReplacedByToken)
		if err != nil {
			s.log.Error("failed to walk rotation chain", zap.String("token_id", current.ID), zap.Error(err))
			return
		}
		if next == nil {
			return
		}

		if !next.IsRevoked() {
			next.Revoke(ip, constant.RevokeReasonReuseDetected, "")
			if _, err := s.store.MarkRevoked(ctx, next); err != nil {
				s.log.Error("failed to revoke descendant token", zap.String("token_id", next.ID), zap.Error(err))
			}
		}

		current = next
	}
}

func newOpaqueToken() (string, error) {
	raw := make([]byte, refreshTokenRawSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
