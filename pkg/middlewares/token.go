package middlewares

import (
	"github.com/gofiber/fiber/v2"

	t_token "cuidarmed_chat_client/pkg/token"
)

const (
	// QueryToken token in query name
	QueryToken = "auth"

	// LocalIdentity parsed identity, set c.locals name
	LocalIdentity = "Identity"
)

// IdentityMiddleware guards the local status surface. The caller must
// present the same bearer token the session runs under; any other
// identity is rejected.
func IdentityMiddleware(sessionAuthID int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Get(fiber.HeaderAuthorization)
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		identity, err := t_token.ParseIdentity(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}
		if identity.AuthID != sessionAuthID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Token does not match this session",
			})
		}

		c.Locals(LocalIdentity, identity)
		return c.Next()
	}
}
