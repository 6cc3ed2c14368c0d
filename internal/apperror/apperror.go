// Package apperror defines the errors handlers return and maps lower level
// failures onto them.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
)

// GenericMessage is shown in production for errors that are not operational.
const GenericMessage = "Something went very wrong!"

// Error is an HTTP error. Operational errors are expected failures whose
// message is safe to show to clients.
type Error struct {
	StatusCode  int
	Message     string
	Operational bool
	cause       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped error, carrying a stack trace.
func (e *Error) Cause() error {
	return e.cause
}

// Status is "fail" for client errors and "error" otherwise.
func (e *Error) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

// New returns an operational error.
func New(status int, message string) *Error {
	return &Error{
		StatusCode:  status,
		Message:     message,
		Operational: true,
		cause:       errors.New(message),
	}
}

// Wrap returns an operational error caused by err.
func Wrap(err error, status int, message string) *Error {
	return &Error{
		StatusCode:  status,
		Message:     message,
		Operational: true,
		cause:       errors.WithStack(err),
	}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }

// Internal wraps an unexpected failure. Its message is hidden in production.
func Internal(err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Message:    err.Error(),
		cause:      errors.WithStack(err),
	}
}

// Messages used by the token checks.
const (
	MsgInvalidToken = "Invalid token! Please login again."
	MsgExpiredToken = "Your login has expired! Please login again."
	MsgNoDocument   = "No document is found with this ID!"
)

// Translate maps any error onto the taxonomy: validation, cast and duplicate
// key errors are 400, missing documents 404, token failures 401, and
// everything unknown an unclassified 500.
func Translate(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var validation *models.ValidationError
	if errors.As(err, &validation) {
		return Wrap(err, http.StatusBadRequest, validation.Error())
	}

	var cast *models.CastError
	if errors.As(err, &cast) {
		return Wrap(err, http.StatusBadRequest, cast.Error())
	}

	var dup *storage.DuplicateKeyError
	if errors.As(err, &dup) {
		msg := "Duplicate field value, please use another value!"
		if dup.Value != "" {
			msg = fmt.Sprintf("Duplicate field value: '%s', please use another value!", dup.Value)
		}
		return Wrap(err, http.StatusBadRequest, msg)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return Wrap(err, http.StatusNotFound, MsgNoDocument)
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return Wrap(err, http.StatusUnauthorized, MsgExpiredToken)
	}
	if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) || errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return Wrap(err, http.StatusUnauthorized, MsgInvalidToken)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		e := Wrap(err, fiberErr.Code, fiberErr.Message)
		e.Operational = fiberErr.Code < http.StatusInternalServerError
		return e
	}

	return Internal(err)
}
