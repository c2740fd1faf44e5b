package handler

import (
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	sessionHandler *SessionHandler,
	passwordHandler *PasswordHandler,
	cartHandler *CartHandler,
	healthHandler *HealthHandler,
	sessionMiddleware fiber.Handler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// API v1
	api := app.Group("/api/v1")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-code", authHandler.ResendCode)

	api.Post("/session/extend", sessionHandler.Extend)

	// User routes (protected)
	users := api.Group("/users", sessionMiddleware)
	users.Get("/me/sessions", sessionHandler.GetMySessions)
	users.Post("/me/password", passwordHandler.ChangePassword)

	// Cart routes are keyed by the visitor cookie, not the session
	cart := api.Group("/cart")
	cart.Get("/", cartHandler.Get)
	cart.Delete("/", cartHandler.Clear)
	cart.Post("/items", cartHandler.AddItem)
	cart.Put("/items/:productId", cartHandler.UpdateQuantity)
	cart.Delete("/items/:productId", cartHandler.RemoveItem)
}
