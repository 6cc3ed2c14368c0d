package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
)

const userLocalKey = "user"

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Protect validates the bearer token and stores the user for next handlers
func Protect(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return apperror.Unauthorized("You are not logged in! Please log in to get access.")
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Protect, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

// bearerToken reads the Authorization header, falling back to the jwt cookie.
func bearerToken(c *fiber.Ctx) string {
	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if token := c.Cookies("jwt"); token != "loggedout" {
		return token
	}
	return ""
}
