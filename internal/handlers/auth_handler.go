package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/natours/internal/apifeatures"
	"github.com/arzan03/natours/internal/middleware"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
)

const (
	jwtCookie     = "jwt"
	logoutTimeout = 10 * time.Second
)

// AuthHandler serves signup, login and password flows
type AuthHandler struct {
	auth          *services.AuthService
	cookieExpires time.Duration
	secureCookie  bool
}

func NewAuthHandler(auth *services.AuthService, cookieExpires time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieExpires: cookieExpires, secureCookie: secureCookie}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var in models.SignupInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, token, err := h.auth.Signup(c.UserContext(), in)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusCreated, user, token)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in models.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, token, err := h.auth.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, user, token)
}

// Logout overwrites the token cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     jwtCookie,
		Value:    "loggedout",
		Expires:  time.Now().Add(logoutTimeout),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var in struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}

	resetURL := func(token string) string {
		return c.BaseURL() + "/api/v1/users/resetPassword/" + token
	}
	if err := h.auth.ForgotPassword(c.UserContext(), in.Email, resetURL); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in models.ResetPasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, token, err := h.auth.ResetPassword(c.UserContext(), c.Params("token"), in)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, user, token)
}

// UpdateMyPassword changes the password of the signed-in user after checking
// the current one.
func (h *AuthHandler) UpdateMyPassword(c *fiber.Ctx) error {
	var in models.UpdatePasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, token, err := h.auth.UpdatePassword(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, user, token)
}

// sendToken sets the jwt cookie and returns the token with the user.
func (h *AuthHandler) sendToken(c *fiber.Ctx, status int, user *models.User, token string) error {
	c.Cookie(&fiber.Cookie{
		Name:     jwtCookie,
		Value:    token,
		Expires:  time.Now().Add(h.cookieExpires),
		HTTPOnly: true,
		Secure:   h.secureCookie,
	})
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"data":   fiber.Map{"user": userView(user)},
	})
}

// userView drops the hidden user fields from a response.
func userView(u *models.User) any {
	view, err := apifeatures.Project(u, nil, models.UserHiddenFields)
	if err != nil {
		return u
	}
	return view
}
