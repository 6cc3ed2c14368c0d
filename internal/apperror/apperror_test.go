package apperror

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		message     string
		operational bool
	}{
		{
			name:        "app error passes through",
			err:         Forbidden("nope"),
			status:      http.StatusForbidden,
			message:     "nope",
			operational: true,
		},
		{
			name:        "validation",
			err:         models.NewValidationError("name", "name is required"),
			status:      http.StatusBadRequest,
			message:     "Invalid input data. name is required",
			operational: true,
		},
		{
			name:        "cast",
			err:         &models.CastError{Path: "_id", Value: "wwwwww"},
			status:      http.StatusBadRequest,
			message:     "Invalid _id: wwwwww",
			operational: true,
		},
		{
			name:        "duplicate key",
			err:         &storage.DuplicateKeyError{Field: "name", Value: "The Forest Hiker"},
			status:      http.StatusBadRequest,
			message:     "Duplicate field value: 'The Forest Hiker', please use another value!",
			operational: true,
		},
		{
			name:        "not found",
			err:         errors.Wrap(storage.ErrNotFound, "find tour"),
			status:      http.StatusNotFound,
			message:     MsgNoDocument,
			operational: true,
		},
		{
			name:        "expired token",
			err:         errors.WithStack(jwt.ErrTokenExpired),
			status:      http.StatusUnauthorized,
			message:     MsgExpiredToken,
			operational: true,
		},
		{
			name:        "bad signature",
			err:         jwt.ErrTokenSignatureInvalid,
			status:      http.StatusUnauthorized,
			message:     MsgInvalidToken,
			operational: true,
		},
		{
			name:        "fiber client error",
			err:         fiber.ErrRequestEntityTooLarge,
			status:      http.StatusRequestEntityTooLarge,
			message:     "Request Entity Too Large",
			operational: true,
		},
		{
			name:        "unknown",
			err:         errors.New("disk on fire"),
			status:      http.StatusInternalServerError,
			message:     "disk on fire",
			operational: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.operational, got.Operational)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "fail", NotFound("x").Status())
	assert.Equal(t, "error", Internal(errors.New("x")).Status())
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(storage.ErrNotFound, http.StatusNotFound, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "gone", err.Error())
}
