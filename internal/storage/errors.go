package storage

import (
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is matched by every DuplicateKeyError.
	ErrDuplicate = errors.New("duplicate key")
)

// DuplicateKeyError names the field and value that violated a unique index.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s: %s", e.Field, e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicate
}

// dupKeyPattern extracts the first key of a server message like
// `E11000 duplicate key error ... dup key: { name: "The Forest Hiker" }`.
var dupKeyPattern = regexp.MustCompile(`dup key: \{ ?"?([\w.]+)"?: "?(.*?)"? ?\}`)

// wrapError converts driver errors into storage errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		dup := &DuplicateKeyError{}
		if m := dupKeyPattern.FindStringSubmatch(err.Error()); m != nil {
			dup.Field, dup.Value = m[1], m[2]
		}
		return dup
	}
	return err
}
