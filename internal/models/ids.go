package models

import (
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is matched by every CastError.
var ErrInvalidID = errors.New("invalid object id")

// CastError reports a value that cannot be converted to an ObjectID.
type CastError struct {
	Path  string
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Path, e.Value)
}

func (e *CastError) Is(target error) bool {
	return target == ErrInvalidID
}

// ParseID converts a hex string into an ObjectID.
func ParseID(path, s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, &CastError{Path: path, Value: s}
	}
	return id, nil
}

// ParseIDs converts every element of ids.
func ParseIDs(path string, ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, s := range ids {
		id, err := ParseID(path, s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
