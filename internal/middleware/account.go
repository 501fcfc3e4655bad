package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/models"
)

// AttachAccount loads the account behind the verified claims. A token
// for an account that no longer exists is as good as no token.
func AttachAccount(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userId").(string)
		if uid == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		var user models.User
		if err := gdb.First(&user, "id = ?", uid).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "account not found")
		}

		c.Locals("account", &user)
		c.Locals("role", string(user.Role))
		return c.Next()
	}
}

// Account returns the user attached by AttachAccount, or nil.
func Account(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("account").(*models.User)
	return u
}
