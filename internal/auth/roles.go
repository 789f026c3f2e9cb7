package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// RequireUser ensures a viewer is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFromContext(c)
		if !caller.Authenticated() {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !caller.IsUser() {
			return apperrors.NewForbidden("user session required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures an administrator is authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFromContext(c)
		if !caller.Authenticated() {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !caller.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
