package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/external-login", h.ExternalLogin)
	v1.Post("/refresh-token", h.Refresh)
	v1.Post("/logout", h.Logout)
	v1.Post("/forgot-password", h.ForgotPassword)
	v1.Post("/reset-password", h.ResetPassword)

	v1.Get("/user/:id", h.RequireAuth(), h.GetUserByID)
}
