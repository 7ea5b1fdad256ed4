package middleware

import (
	"strings"

	"splay/domain"
	"splay/internal/api/presenters"
	"splay/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware accepts access tokens of existing, active users and stores
// the user id in c.Locals("user_id").
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, domain.ErrTokenNotFound)
		}

		userID, err := jwtService.GetUserIDByToken(token, jwt.TokenTypeAccess)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
		}

		u, err := m.userRepository.GetUserByID(c.Context(), userID)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, domain.ErrTokenInvalid)
		}
		if !u.IsActive {
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageUserInactive, domain.ErrUserInactive)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
