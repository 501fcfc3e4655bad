package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gharpoint/gharpoint_be/internal/utils"
)

const CookieName = "token"

// TokenRequired pulls the token from the Authorization header first,
// then from the cookie, verifies it and puts the claims in locals.
// Missing and invalid tokens are distinct 401s.
func TokenRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ""
		if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieName)
		}
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		claims, err := utils.ParseToken(secret, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))
		return c.Next()
	}
}
