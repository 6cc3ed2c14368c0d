package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/natours/internal/middleware"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
)

// UserHandler serves the account and admin routes under /api/v1/users
type UserHandler struct {
	users    *services.UserService
	resource *Resource[models.User]
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{
		users: users,
		resource: &Resource[models.User]{
			Repo: users.Repository(),
			Build: func(c *fiber.Ctx) (*models.User, error) {
				var in models.UserInput
				if err := parseBody(c, &in); err != nil {
					return nil, err
				}
				return users.NewUser(in)
			},
			Patch: func(c *fiber.Ctx, u *models.User) error {
				var patch models.UserPatch
				if err := parseBody(c, &patch); err != nil {
					return err
				}
				return patch.Apply(u)
			},
			Hidden:       models.UserHiddenFields,
			StringFields: []string{"name", "email", "photo", "role"},
		},
	}
}

func (h *UserHandler) GetAllUsers(c *fiber.Ctx) error { return h.resource.GetAll(c) }
func (h *UserHandler) GetUser(c *fiber.Ctx) error     { return h.resource.GetOne(c) }
func (h *UserHandler) CreateUser(c *fiber.Ctx) error  { return h.resource.CreateOne(c) }
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error  { return h.resource.UpdateOne(c) }
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error  { return h.resource.DeleteOne(c) }

// GetMe returns the signed-in user.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	return sendDoc(c, fiber.StatusOK, middleware.CurrentUser(c), models.UserHiddenFields)
}

// UpdateMe changes name, email or photo of the signed-in user.
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var in models.UpdateMeInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.users.UpdateMe(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": userView(user)},
	})
}

// DeleteMe deactivates the signed-in user.
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	if err := h.users.DeleteMe(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
