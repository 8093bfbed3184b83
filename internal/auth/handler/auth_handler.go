package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/internal/auth/dto"
	"github.com/m-aykurt/bakici-backend/internal/auth/service"
	autherror "github.com/m-aykurt/bakici-backend/internal/errors"
	"github.com/m-aykurt/bakici-backend/pkg/constant"
)

type AuthHandler struct {
	authService *service.AuthService
	tokens      service.TokenGenerator
	refreshTTL  time.Duration
	log         *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, tokens service.TokenGenerator, refreshTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		refreshTTL:  refreshTTL,
		log:         log,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	if input.Email == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return badRequest(c, "email, password, first name and last name are required")
	}

	id, err := h.authService.Register(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrEmailAlreadyInUse) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RegisterOutput{ID: id, Email: input.Email})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	input.IPAddress = clientIP(c)

	result, err := h.authService.Login(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrTooManyLoginAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
		}

		return h.internalError(c, err)
	}

	if !result.Success {
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}

	h.setRefreshTokenCookie(c, result.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid input")
	}

	// The token may arrive in the body or in the cookie set at login.
	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshTokenCookie)
	}
	if input.RefreshToken == "" {
		return badRequest(c, "refresh token is required")
	}

	input.IPAddress = clientIP(c)

	result, err := h.authService.Refresh(c.Context(), input)
	if err != nil {
		return h.internalError(c, err)
	}

	if !result.Success {
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}

	h.setRefreshTokenCookie(c, result.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(result)
}

// Logout always reports success: a missing token means the session is
// already gone.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	input := dto.LogoutInput{
		RefreshToken: c.Cookies(constant.RefreshTokenCookie),
		IPAddress:    clientIP(c),
	}

	if err := h.authService.Logout(c.Context(), input); err != nil {
		return h.internalError(c, err)
	}

	c.ClearCookie(constant.RefreshTokenCookie)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": constant.MsgLoggedOut})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	if input.Email == "" {
		return badRequest(c, "email is required")
	}

	input.ResetURL = c.BaseURL() + "/reset-password"

	if err := h.authService.ForgotPassword(c.Context(), input); err != nil {
		h.log.Error("forgot password failed", zap.Error(err))
	}

	// Identical response whether or not the account exists.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": constant.MsgForgotPassword})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	if input.Token == "" || input.NewPassword == "" {
		return badRequest(c, "token and new password are required")
	}

	if err := h.authService.ResetPassword(c.Context(), input); err != nil {
		if errors.Is(err, autherror.ErrResetTokenInvalid) {
			return badRequest(c, constant.MsgPasswordResetFailed)
		}

		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": constant.MsgPasswordReset})
}

func (h *AuthHandler) ExternalLogin(c *fiber.Ctx) error {
	var input dto.ExternalLoginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	if input.Provider == "" || input.ProviderKey == "" || input.Email == "" {
		return badRequest(c, "provider, provider key and email are required")
	}

	input.IPAddress = clientIP(c)

	result, err := h.authService.ExternalLogin(c.Context(), input)
	if err != nil {
		return h.internalError(c, err)
	}

	if !result.Success {
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}

	h.setRefreshTokenCookie(c, result.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AuthHandler) GetUserByID(c *fiber.Ctx) error {
	id := c.Params("id")

	user, err := h.authService.GetUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, autherror.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}

		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

func (h *AuthHandler) setRefreshTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    token,
		Expires:  time.Now().Add(h.refreshTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Secure:   c.Secure(),
	})
}

// internalError hides store and codec failures behind a generic body; the
// detail only goes to the log.
func (h *AuthHandler) internalError(c *fiber.Ctx, err error) error {
	h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func clientIP(c *fiber.Ctx) string {
	// X-Forwarded-For can carry the whole proxy chain; the client is the
	// first element.
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")

		return strings.TrimSpace(first)
	}

	return c.IP()
}
