package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/config"
	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
	"github.com/m-aykurt/bakici-backend/internal/auth/dto"
	"github.com/m-aykurt/bakici-backend/internal/auth/handler"
	"github.com/m-aykurt/bakici-backend/internal/auth/service"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
	"github.com/m-aykurt/bakici-backend/internal/mocks"
	"github.com/m-aykurt/bakici-backend/pkg/constant"
)

type testEnv struct {
	app    *fiber.App
	users  *mocks.MockUserStore
	rts    *mocks.MockRefreshTokenStore
	resets *mocks.MockResetTokenStore
	hasher *mocks.MockPasswordHasher
	tokens *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	users := mocks.NewMockUserStore(ctrl)
	rts := mocks.NewMockRefreshTokenStore(ctrl)
	resets := mocks.NewMockResetTokenStore(ctrl)
	hasher := mocks.NewMockPasswordHasher(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().SendPasswordResetLink(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	log := zap.NewNop()
	tokens := service.NewTokenService("test-secret", "bakici-backend", "bakici-clients", time.Hour)

	cfg := &config.Config{
		LoginMaxAttempts:      5,
		LoginAttemptWindowMin: 15,
	}

	authService := service.NewAuthService(
		users,
		service.NewRefreshService(rts, 7*24*time.Hour, log),
		service.NewResetService(resets, time.Hour, log),
		tokens,
		hasher,
		notifier,
		cfg,
		log,
	)

	app := fiber.New()
	handler.RegisterRoutes(app, handler.NewAuthHandler(authService, tokens, 7*24*time.Hour, log))

	return &testEnv{app: app, users: users, rts: rts, resets: resets, hasher: hasher, tokens: tokens}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return req
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == constant.RefreshTokenCookie {
			return c
		}
	}

	return nil
}

func storedUser(t *testing.T) *domain.User {
	t.Helper()

	user, err := domain.NewUser("alice@example.com", "stored-hash", "Alice", "Smith", "", constant.UserTypeFamily)
	require.NoError(t, err)
	require.NoError(t, user.AddRole(constant.RoleFamily))

	return user
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t)

		env.users.EXPECT().ExistsByEmail(gomock.Any(), "new@example.com").Return(false, nil)
		env.hasher.EXPECT().Hash("Secret123!").Return("hashed", nil)
		env.users.EXPECT().Add(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/register", dto.RegisterInput{
			Email:     "new@example.com",
			Password:  "Secret123!",
			FirstName: "New",
			LastName:  "User",
			UserType:  constant.UserTypeFamily,
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		out := decodeBody[dto.RegisterOutput](t, resp)
		assert.NotEmpty(t, out.ID)
		assert.Equal(t, "new@example.com", out.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)

		env.users.EXPECT().ExistsByEmail(gomock.Any(), "taken@example.com").Return(true, nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/register", dto.RegisterInput{
			Email:     "taken@example.com",
			Password:  "Secret123!",
			FirstName: "New",
			LastName:  "User",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/register", dto.RegisterInput{
			Email: "new@example.com",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("success sets refresh cookie", func(t *testing.T) {
		env := newTestEnv(t)
		user := storedUser(t)

		env.users.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
		env.users.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
		env.hasher.EXPECT().Verify("stored-hash", "Secret123!").Return(true)
		env.users.EXPECT().Update(gomock.Any(), user).Return(nil)
		env.users.EXPECT().RecordLoginAttempt(gomock.Any(), "alice@example.com", gomock.Any(), true).Return(nil)
		env.rts.EXPECT().Add(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/login", dto.LoginInput{
			Email:    "alice@example.com",
			Password: "Secret123!",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		result := decodeBody[dto.AuthenticationResult](t, resp)
		assert.True(t, result.Success)
		assert.NotEmpty(t, result.AccessToken)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie)
		assert.Equal(t, result.RefreshToken, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		env := newTestEnv(t)

		env.users.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
		env.users.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, nil)
		env.users.EXPECT().RecordLoginAttempt(gomock.Any(), "alice@example.com", gomock.Any(), false).Return(nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/login", dto.LoginInput{
			Email:    "alice@example.com",
			Password: "wrong",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		result := decodeBody[dto.AuthenticationResult](t, resp)
		assert.Equal(t, constant.MsgInvalidCredentials, result.Message)
		assert.Nil(t, refreshCookie(resp))
	})

	t.Run("throttled", func(t *testing.T) {
		env := newTestEnv(t)

		env.users.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(5, nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/login", dto.LoginInput{
			Email:    "alice@example.com",
			Password: "Secret123!",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Run("rotates token from cookie", func(t *testing.T) {
		env := newTestEnv(t)
		user := storedUser(t)

		presented, err := domain.NewRefreshToken(user.ID, "token-1", time.Now().Add(24*time.Hour), "")
		require.NoError(t, err)

		env.rts.EXPECT().GetByToken(gomock.Any(), "token-1").Return(presented, nil)
		env.rts.EXPECT().MarkRevoked(gomock.Any(), presented).Return(true, nil)
		env.rts.EXPECT().Add(gomock.Any(), gomock.Any()).Return(nil)
		env.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		req := jsonRequest(t, fiber.MethodPost, "/api/v1/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: constant.RefreshTokenCookie, Value: "token-1"})

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		result := decodeBody[dto.AuthenticationResult](t, resp)
		assert.True(t, result.Success)
		assert.NotEqual(t, "token-1", result.RefreshToken)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie)
		assert.Equal(t, result.RefreshToken, cookie.Value)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)

		env.rts.EXPECT().GetByToken(gomock.Any(), "missing").Return(nil, nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/refresh-token", dto.RefreshInput{
			RefreshToken: "missing",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		result := decodeBody[dto.AuthenticationResult](t, resp)
		assert.Equal(t, constant.MsgInvalidRefreshToken, result.Message)
	})

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/refresh-token", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Run("revokes cookie token and clears cookie", func(t *testing.T) {
		env := newTestEnv(t)

		rt, err := domain.NewRefreshToken("user-123", "token-1", time.Now().Add(24*time.Hour), "")
		require.NoError(t, err)

		env.rts.EXPECT().GetByToken(gomock.Any(), "token-1").Return(rt, nil)
		env.rts.EXPECT().MarkRevoked(gomock.Any(), rt).Return(true, nil)

		req := jsonRequest(t, fiber.MethodPost, "/api/v1/logout", nil)
		req.AddCookie(&http.Cookie{Name: constant.RefreshTokenCookie, Value: "token-1"})

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
	})

	t.Run("no cookie still succeeds", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/logout", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestForgotPasswordEndpoint(t *testing.T) {
	t.Run("same response for unknown email", func(t *testing.T) {
		env := newTestEnv(t)

		env.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/forgot-password", dto.ForgotPasswordInput{
			Email: "ghost@example.com",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("known email issues a token", func(t *testing.T) {
		env := newTestEnv(t)
		user := storedUser(t)

		env.users.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
		env.resets.EXPECT().GetValidByUserID(gomock.Any(), user.ID).Return(nil, nil)
		env.resets.EXPECT().Add(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/forgot-password", dto.ForgotPasswordInput{
			Email: "alice@example.com",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing email", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/forgot-password", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestResetPasswordEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)

		tok, err := domain.NewPasswordResetToken("user-123", "reset-token", time.Hour)
		require.NoError(t, err)

		env.hasher.EXPECT().Hash("NewSecret123!").Return("new-hash", nil)
		env.resets.EXPECT().GetByToken(gomock.Any(), "reset-token").Return(tok, nil)
		env.resets.EXPECT().Consume(gomock.Any(), tok.ID, "user-123", "new-hash").Return(nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/reset-password", dto.ResetPasswordInput{
			Token:       "reset-token",
			NewPassword: "NewSecret123!",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		env := newTestEnv(t)

		env.hasher.EXPECT().Hash("NewSecret123!").Return("new-hash", nil)
		env.resets.EXPECT().GetByToken(gomock.Any(), "bad-token").Return(nil, nil)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/reset-password", dto.ResetPasswordInput{
			Token:       "bad-token",
			NewPassword: "NewSecret123!",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	// Losing the consume race to a concurrent redemption is a rejection,
	// not a server error.
	t.Run("concurrent redemption gets a rejection", func(t *testing.T) {
		env := newTestEnv(t)

		tok, err := domain.NewPasswordResetToken("user-123", "reset-token", time.Hour)
		require.NoError(t, err)

		env.hasher.EXPECT().Hash("NewSecret123!").Return("new-hash", nil)
		env.resets.EXPECT().GetByToken(gomock.Any(), "reset-token").Return(tok, nil)
		env.resets.EXPECT().Consume(gomock.Any(), tok.ID, "user-123", "new-hash").
			Return(autherror.ErrResetTokenConflict)

		resp, err := env.app.Test(jsonRequest(t, fiber.MethodPost, "/api/v1/reset-password", dto.ResetPasswordInput{
			Token:       "reset-token",
			NewPassword: "NewSecret123!",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

// Proxied requests carry the whole chain in X-Forwarded-For; only the first
// element is the client and only it is recorded.
func TestClientIPBehindProxyChain(t *testing.T) {
	env := newTestEnv(t)

	env.users.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
	env.users.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, nil)
	env.users.EXPECT().RecordLoginAttempt(gomock.Any(), "alice@example.com", "203.0.113.7", false).Return(nil)

	req := jsonRequest(t, fiber.MethodPost, "/api/v1/login", dto.LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetUserEndpoint(t *testing.T) {
	t.Run("requires bearer token", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/user/user-123", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects a bad token", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(fiber.MethodGet, "/api/v1/user/user-123", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("returns the user", func(t *testing.T) {
		env := newTestEnv(t)
		user := storedUser(t)

		access, _, err := env.tokens.Issue(user)
		require.NoError(t, err)

		env.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		req := httptest.NewRequest(fiber.MethodGet, "/api/v1/user/"+user.ID, nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		out := decodeBody[dto.UserOutput](t, resp)
		assert.Equal(t, user.Email, out.Email)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t)

		access, _, err := env.tokens.Issue(storedUser(t))
		require.NoError(t, err)

		env.users.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, nil)

		req := httptest.NewRequest(fiber.MethodGet, "/api/v1/user/missing", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
