package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller and the record it was loaded from.
type Principal struct {
	Caller domain.Caller
	User   *domain.User
	Admin  *domain.Admin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	admins repository.AdminRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, admins repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, admins: admins}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	principal := &Principal{Caller: claims.Caller()}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			return lookupError("user", err)
		}
		principal.User = user
		principal.Caller.Email = user.Email
	case domain.SubjectTypeAdmin:
		admin, err := m.admins.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			return lookupError("admin", err)
		}
		principal.Admin = admin
		principal.Caller.Email = admin.Email
	default:
		return apperrors.NewUnauthenticated("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func lookupError(subject string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewUnauthenticated(subject + " not found")
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.NewStoreUnavailable(err)
	default:
		return apperrors.NewInternalError(err)
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// CallerFromContext returns the explicit caller, or a zero Caller for
// anonymous requests.
func CallerFromContext(c *fiber.Ctx) domain.Caller {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return domain.Caller{}
	}
	return principal.Caller
}
