package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
)

// UserService manages accounts outside of the authentication flows
type UserService struct {
	users storage.Repository[models.User]
	now   func() time.Time
}

func NewUserService(users storage.Repository[models.User]) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Repository exposes the user repository to the generic handlers.
func (s *UserService) Repository() storage.Repository[models.User] {
	return s.users
}

// UpdateMe changes the profile fields of the signed-in user. Passwords are
// changed through UpdatePassword only.
func (s *UserService) UpdateMe(ctx context.Context, current *models.User, in models.UpdateMeInput) (*models.User, error) {
	if in.TouchesPassword() {
		return nil, apperror.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}

	user, err := s.users.FindByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	in.Apply(user)
	if err := s.users.Replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteMe deactivates the signed-in user. The account is kept but no
// longer readable.
func (s *UserService) DeleteMe(ctx context.Context, current *models.User) error {
	return s.users.Update(ctx, current.ID, storage.Update{Set: bson.M{"active": false}})
}

// NewUser builds a user from the admin create payload.
func (s *UserService) NewUser(in models.UserInput) (*models.User, error) {
	if err := models.Validate(&in); err != nil {
		return nil, err
	}
	user := models.NewUser(in.Name, in.Email)
	user.Photo = in.Photo
	if in.Role != "" {
		user.Role = in.Role
	}
	if err := user.SetPassword(in.Password, s.now()); err != nil {
		return nil, err
	}
	return user, nil
}
