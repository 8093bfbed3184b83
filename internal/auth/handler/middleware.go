package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const claimsLocalKey = "claims"

// RequireAuth validates the bearer access token and stores its claims in the
// request locals.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		claims, err := h.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(claimsLocalKey, claims)

		return c.Next()
	}
}
