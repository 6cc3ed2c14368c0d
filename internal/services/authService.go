package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
)

// AuthService implements signup, login, token checks and password flows
type AuthService struct {
	users    storage.Repository[models.User]
	tokens   *TokenService
	mailer   Mailer
	resetTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users storage.Repository[models.User], tokens *TokenService, mailer Mailer, resetTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: resetTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source of the service and its token service.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	s.tokens.now = now
	return s
}

// Signup registers a new user with the default role and signs them in.
func (s *AuthService) Signup(ctx context.Context, in models.SignupInput) (*models.User, string, error) {
	if err := models.Validate(&in); err != nil {
		return nil, "", err
	}

	user := models.NewUser(in.Name, in.Email)
	user.Photo = in.Photo
	if err := user.SetPassword(in.Password, s.now()); err != nil {
		return nil, "", err
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, "", err
	}
	return s.session(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*models.User, string, error) {
	if in.Email == "" || in.Password == "" {
		return nil, "", apperror.BadRequest("Please provide email and password!")
	}

	user, err := s.users.FindOne(ctx, bson.M{"email": normalizeEmail(in.Email)})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperror.Unauthorized("Incorrect email or password!")
	}
	if err != nil {
		return nil, "", err
	}

	// Verify password
	if !user.CheckPassword(in.Password) {
		return nil, "", apperror.Unauthorized("Incorrect email or password!")
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to its user. The token must be
// correctly signed and unexpired, its subject must be an active user, and
// that user must not have changed their password after it was issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(err, http.StatusUnauthorized, apperror.MsgExpiredToken)
		}
		return nil, apperror.Wrap(err, http.StatusUnauthorized, apperror.MsgInvalidToken)
	}

	id, err := models.ParseID("sub", claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusUnauthorized, apperror.MsgInvalidToken)
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.Unauthorized("The user belonging to this token does no longer exist.")
	}
	if err != nil {
		return nil, err
	}

	if claims.IssuedAt == nil || user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperror.Unauthorized("User recently changed password! Please login again.")
	}
	return user, nil
}

// ForgotPassword stores a reset token for the account and emails it. The
// stored token is removed again when the email cannot be sent.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	user, err := s.users.FindOne(ctx, bson.M{"email": normalizeEmail(email)})
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound("There is no user with that email address.")
	}
	if err != nil {
		return err
	}

	token, err := user.CreatePasswordResetToken(s.now(), s.resetTTL)
	if err != nil {
		return err
	}
	err = s.users.Update(ctx, user.ID, storage.Update{Set: bson.M{
		"passwordResetToken":   user.PasswordResetToken,
		"passwordResetExpires": user.PasswordResetExpires,
	}})
	if err != nil {
		return err
	}

	msg := Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(s.resetTTL.Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n"+
			"If you didn't forget your password, please ignore this email!", resetURL(token)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		rollback := storage.Update{Unset: []string{"passwordResetToken", "passwordResetExpires"}}
		if rbErr := s.users.Update(ctx, user.ID, rollback); rbErr != nil {
			s.logger.Error("failed to roll back password reset token",
				zap.String("user", user.ID.Hex()), zap.Error(rbErr))
		}
		return apperror.Wrap(err, http.StatusInternalServerError, "There was an error sending the email. Try again later!")
	}
	return nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token string, in models.ResetPasswordInput) (*models.User, string, error) {
	user, err := s.users.FindOne(ctx, bson.M{
		"passwordResetToken":   models.HashResetToken(token),
		"passwordResetExpires": bson.M{"$gt": s.now()},
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperror.BadRequest("Token is invalid or has expired")
	}
	if err != nil {
		return nil, "", err
	}
	if err := models.Validate(&in); err != nil {
		return nil, "", err
	}

	if err := user.SetPassword(in.Password, s.now()); err != nil {
		return nil, "", err
	}
	user.ClearPasswordReset()
	if err := s.users.Replace(ctx, user); err != nil {
		return nil, "", err
	}
	return s.session(user)
}

// UpdatePassword changes the password of a signed-in user after checking the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, current *models.User, in models.UpdatePasswordInput) (*models.User, string, error) {
	if err := models.Validate(&in); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByID(ctx, current.ID)
	if err != nil {
		return nil, "", err
	}
	if !user.CheckPassword(in.PasswordCurrent) {
		return nil, "", apperror.Unauthorized("Your current password is wrong.")
	}

	if err := user.SetPassword(in.Password, s.now()); err != nil {
		return nil, "", err
	}
	if err := s.users.Replace(ctx, user); err != nil {
		return nil, "", err
	}
	return s.session(user)
}

func (s *AuthService) session(user *models.User) (*models.User, string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
