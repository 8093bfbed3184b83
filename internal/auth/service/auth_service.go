package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/config"
	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	"github.com/m-aykurt/bakici-backend/internal/auth/dto"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
	"github.com/m-aykurt/bakici-backend/pkg/constant"
)

// AuthService composes the credential, token and reset services into the
// use cases the transport layer calls. It is the only entry point handlers
// talk to.
type AuthService struct {
	users    domain.UserStore
	refresh  *RefreshService
	reset    *ResetService
	tokens   TokenGenerator
	hasher   PasswordHasher
	notifier domain.Notifier
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthService(
	users domain.UserStore,
	refresh *RefreshService,
	reset *ResetService,
	tokens TokenGenerator,
	hasher PasswordHasher,
	notifier domain.Notifier,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		refresh:  refresh,
		reset:    reset,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// Register creates a new user with the default role for the requested
// account type and returns the new id.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (string, error) {
	email := strings.ToLower(input.Email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", autherror.ErrEmailAlreadyInUse
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return "", err
	}

	user, err := domain.NewUser(email, hash, input.FirstName, input.LastName, input.PhoneNumber, input.UserType)
	if err != nil {
		return "", err
	}

	if err := user.AddRole(defaultRoleFor(input.UserType)); err != nil {
		return "", err
	}

	if err := s.users.Add(ctx, user); err != nil {
		return "", err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))

	return user.ID, nil
}

// Login verifies credentials and, on success, issues an access/refresh token
// pair. Unknown email and wrong password produce the same rejection message
// so responses do not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthenticationResult, error) {
	email := strings.ToLower(input.Email)

	failures, err := s.users.CountRecentFailures(ctx, email, time.Now().Add(-s.cfg.LoginAttemptWindow()))
	if err != nil {
		return nil, err
	}
	if failures >= s.cfg.LoginMaxAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil || !s.hasher.Verify(user.PasswordHash, input.Password) {
		if err := s.users.RecordLoginAttempt(ctx, email, input.IPAddress, false); err != nil {
			s.log.Warn("failed to record login attempt", zap.Error(err))
		}

		return dto.Rejected(constant.MsgInvalidCredentials), nil
	}

	if !user.IsActive {
		return dto.Rejected(constant.MsgAccountDeactivated), nil
	}

	user.RecordLogin()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.users.RecordLoginAttempt(ctx, email, input.IPAddress, true); err != nil {
		s.log.Warn("failed to record login attempt", zap.Error(err))
	}

	return s.issueTokenPair(ctx, user, input.IPAddress)
}

// Refresh rotates the presented refresh token and issues a new access token.
// Every rotation failure maps to the same unauthorized result; revealing
// whether a token was unknown, expired or reused would help an attacker.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.AuthenticationResult, error) {
	newRT, err := s.refresh.Rotate(ctx, input.RefreshToken, input.IPAddress)
	if err != nil {
		if autherror.IsRefreshFailure(err) {
			return dto.Rejected(constant.MsgInvalidRefreshToken), nil
		}

		return nil, err
	}

	user, err := s.users.GetByID(ctx, newRT.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found for refreshed token", newRT.UserID)
	}

	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthenticationResult{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: newRT.Token,
		Expiration:   &expiresAt,
		User:         dto.NewUserOutput(user),
	}, nil
}

// Logout revokes the presented refresh token. A missing or unknown token
// counts as already logged out; only the single presented session is ended,
// other devices keep their tokens.
func (s *AuthService) Logout(ctx context.Context, input dto.LogoutInput) error {
	if input.RefreshToken == "" {
		return nil
	}

	err := s.refresh.Revoke(ctx, input.RefreshToken, input.IPAddress, constant.RevokeReasonLoggedOut)
	if err != nil && !autherror.IsRefreshFailure(err) {
		return err
	}

	return nil
}

// ForgotPassword issues a reset token and hands the link to the notifier.
// The outcome is identical whether or not the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, input dto.ForgotPasswordInput) error {
	email := strings.ToLower(input.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, err := s.reset.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s?token=%s", input.ResetURL, token.Token)
	if err := s.notifier.SendPasswordResetLink(ctx, user.Email, url); err != nil {
		s.log.Error("failed to send password reset link", zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ResetPassword redeems the reset token and installs the new password.
func (s *AuthService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	userID, err := s.reset.Redeem(ctx, input.Token, hash)
	if err != nil {
		return err
	}

	s.log.Info("password reset", zap.String("user_id", userID))

	return nil
}

// ExternalLogin signs a user in through a provider binding, creating the
// account on first contact.
func (s *AuthService) ExternalLogin(ctx context.Context, input dto.ExternalLoginInput) (*dto.AuthenticationResult, error) {
	user, err := s.users.GetByExternalLogin(ctx, input.Provider, input.ProviderKey)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = s.linkOrCreateExternalUser(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	if !user.IsActive {
		return dto.Rejected(constant.MsgAccountDeactivated), nil
	}

	user.RecordLogin()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user, input.IPAddress)
}

// GetUserByID returns the public projection of a user.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*dto.UserOutput, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	return dto.NewUserOutput(user), nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User, ip string) (*dto.AuthenticationResult, error) {
	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	rt, err := s.refresh.Issue(ctx, user.ID, ip)
	if err != nil {
		return nil, err
	}

	return &dto.AuthenticationResult{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: rt.Token,
		Expiration:   &expiresAt,
		User:         dto.NewUserOutput(user),
	}, nil
}

func (s *AuthService) linkOrCreateExternalUser(ctx context.Context, input dto.ExternalLoginInput) (*domain.User, error) {
	email := strings.ToLower(input.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		if err := user.AddExternalLogin(input.Provider, input.ProviderKey); err != nil {
			return nil, err
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}

		return user, nil
	}

	// No local account yet: create one with an unguessable password so the
	// provider binding is the only way in until a reset.
	randomSecret, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(randomSecret)
	if err != nil {
		return nil, err
	}

	user, err = domain.NewUser(email, hash, input.FirstName, input.LastName, "", constant.UserTypeFamily)
	if err != nil {
		return nil, err
	}

	if err := user.AddRole(defaultRoleFor(user.UserType)); err != nil {
		return nil, err
	}
	if err := user.AddExternalLogin(input.Provider, input.ProviderKey); err != nil {
		return nil, err
	}

	if err := s.users.Add(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created via external login",
		zap.String("user_id", user.ID),
		zap.String("provider", input.Provider))

	return user, nil
}

func defaultRoleFor(userType string) string {
	switch userType {
	case constant.UserTypeCaregiver:
		return constant.RoleCaregiver
	case constant.UserTypeAdmin:
		return constant.RoleAdmin
	default:
		return constant.RoleFamily
	}
}
