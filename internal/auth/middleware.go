package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User domain.AppUser
	Role domain.RoleName
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	store  store.Store
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, s store.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, store: s}
}

// Handle enforces authentication for protected routes. The role is read from
// the store, so a role change takes effect before the token expires.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	var principal Principal
	err = m.store.View(c.UserContext(), func(v store.View) error {
		user, err := v.FindUser(c.UserContext(), claims.UserID)
		if err != nil {
			return err
		}
		role, err := v.FindRole(c.UserContext(), user.RoleID)
		if err != nil {
			return err
		}
		principal = Principal{User: user, Role: role.Name}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &principal)
	return c.Next()
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
