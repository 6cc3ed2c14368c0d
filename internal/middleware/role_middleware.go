package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
)

// RestrictTo lets only users with one of roles continue. It must run after Protect.
func RestrictTo(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperror.Unauthorized("You are not logged in! Please log in to get access.")
		}
		if !allowed[user.Role] {
			return apperror.Forbidden("You do not have permission to perform this action!")
		}
		return c.Next()
	}
}
