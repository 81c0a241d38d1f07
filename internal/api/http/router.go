package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/api/auth")
	authGroup.Get("/health", cfg.Health.Health)
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// guards are attached per route; a guarded Group would also run them for
	// unmatched paths under the prefix
	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}
	adminOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAdminRole()}

	authGroup.Get("/me", append(authenticated, cfg.Users.Me)...)
	authGroup.Get("/verify", append(authenticated, cfg.Users.Verify)...)
	authGroup.Post("/admin/users", append(adminOnly, cfg.Users.CreateUser)...)
}
