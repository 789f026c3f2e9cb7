package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/streamhub/internal/api/http/handlers"
	"github.com/spec-kit/streamhub/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	Movies         *handlers.MoviesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/admin/login", cfg.Admin.Login)

	app.Get("/movies", cfg.Movies.List)
	app.Get("/movies/:id", cfg.Movies.Get)

	// Viewer middleware is attached per route; an unprefixed group would run
	// it for every later route, /admin included.
	app.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Users.Me)
	app.Get("/movies/:id/play", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Movies.Play)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/registrations", cfg.Admin.ListRegistrations)
	admin.Post("/registrations/:id/approve", cfg.Admin.Approve)
	admin.Post("/registrations/:id/reject", cfg.Admin.Reject)

	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Get("/users/expired", cfg.Admin.ListExpired)
	admin.Put("/users/:id/access", cfg.Admin.UpdateAccess)
	admin.Post("/users/:id/revoke", cfg.Admin.Revoke)
	admin.Post("/users/:id/restore", cfg.Admin.Restore)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)

	admin.Post("/maintenance/sweep", cfg.Admin.Sweep)

	admin.Post("/movies", cfg.Movies.Create)
	admin.Put("/movies/:id", cfg.Movies.Update)
	admin.Delete("/movies/:id", cfg.Movies.Delete)
	admin.Post("/movies/:id/assets/:kind", cfg.Movies.UploadAsset)
}
