package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/arzan03/natours/internal/utils"
)

// Role of a user
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 12

// passwordChangeSkew backdates passwordChangedAt so a token issued in the
// same second as the change is still accepted.
const passwordChangeSkew = time.Second

// UserHiddenFields are left out of responses unless explicitly requested.
var UserHiddenFields = []string{"active"}

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name" validate:"required"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Photo                string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role                 Role               `bson:"role" json:"role" validate:"required,oneof=user guide lead-guide admin"`
	Password             string             `bson:"password" json:"-" validate:"required"`
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty" json:"passwordChangedAt,omitempty"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               bool               `bson:"active" json:"active"`
	Version              int                `bson:"__v" json:"__v"`
}

// NewUser returns an active user with the default role.
func NewUser(name, email string) *User {
	return &User{
		Name:   name,
		Email:  email,
		Role:   RoleUser,
		Active: true,
	}
}

func (u *User) GetID() primitive.ObjectID   { return u.ID }
func (u *User) SetID(id primitive.ObjectID) { u.ID = id }

// Validate checks the user schema.
func (u *User) Validate() error { return Validate(u) }

// Prepare normalizes the document before it is written.
func (u *User) Prepare() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
}

// SetPassword hashes plain and records the change time.
func (u *User) SetPassword(plain string, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	u.Password = string(hash)
	changed := now.Add(-passwordChangeSkew).UTC().Truncate(time.Millisecond)
	u.PasswordChangedAt = &changed
	return nil
}

// CheckPassword compares a plain password with the stored hash
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// ChangedPasswordAfter reports whether the password changed after a token issued at iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

// CreatePasswordResetToken stores the hash of a fresh token and returns the cleartext.
func (u *User) CreatePasswordResetToken(now time.Time, ttl time.Duration) (string, error) {
	token, err := utils.SecureToken(32)
	if err != nil {
		return "", err
	}
	expires := now.Add(ttl).UTC().Truncate(time.Millisecond)
	u.PasswordResetToken = HashResetToken(token)
	u.PasswordResetExpires = &expires
	return token, nil
}

// ClearPasswordReset drops the pending reset token.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

// HashResetToken returns the stored form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// UserSummary is the public projection of a referenced user.
type UserSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email,omitempty"`
	Photo string             `json:"photo,omitempty"`
	Role  Role               `json:"role,omitempty"`
}

// Guide is the projection used when expanding tour guides.
func (u *User) Guide() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// Author is the projection used when expanding review authors.
func (u *User) Author() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Photo: u.Photo}
}

// SignupInput is the signup payload.
type SignupInput struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Photo           string `json:"photo"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordInput is the payload for redeeming a reset token.
type ResetPasswordInput struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdatePasswordInput is the payload for changing a known password.
type UpdatePasswordInput struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdateMeInput holds the profile fields a user may change on their own account.
type UpdateMeInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// TouchesPassword reports whether the payload tries to change the password.
func (in *UpdateMeInput) TouchesPassword() bool {
	return in.Password != nil || in.PasswordConfirm != nil
}

// Apply copies the set profile fields onto u.
func (in *UpdateMeInput) Apply(u *User) {
	setIf(&u.Name, in.Name)
	setIf(&u.Email, in.Email)
	setIf(&u.Photo, in.Photo)
}

// UserInput is the admin create payload.
type UserInput struct {
	SignupInput
	Role Role `json:"role"`
}

// UserPatch is the admin update payload. Passwords cannot be changed here.
type UserPatch struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Photo  *string `json:"photo"`
	Role   *Role   `json:"role"`
	Active *bool   `json:"active"`
}

// Apply copies the set fields onto u.
func (p *UserPatch) Apply(u *User) error {
	setIf(&u.Name, p.Name)
	setIf(&u.Email, p.Email)
	setIf(&u.Photo, p.Photo)
	setIf(&u.Role, p.Role)
	setIf(&u.Active, p.Active)
	return nil
}
