// Package seed loads the dev-data JSON files into a storage backend.
package seed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
)

// Counts reports how many documents were written per collection.
type Counts struct {
	Tours, Users, Reviews int
}

type tourSeed struct {
	ID string `json:"_id"`
	models.TourInput
}

type userSeed struct {
	ID       string      `json:"_id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Photo    string      `json:"photo"`
	Role     models.Role `json:"role"`
	Password string      `json:"password"`
	Active   *bool       `json:"active"`
}

type reviewSeed struct {
	ID string `json:"_id"`
	models.ReviewInput
}

// Recalculator refreshes the rating summary of a tour.
type Recalculator interface {
	Recalculate(ctx context.Context, tourID primitive.ObjectID) error
}

// Import reads tours.json, users.json and reviews.json from dir. Missing
// files are skipped. Passwords that are already bcrypt hashes are stored as is.
func Import(ctx context.Context, dir string, b *storage.Backend, ratings Recalculator, logger *zap.Logger) (Counts, error) {
	var counts Counts

	var users []userSeed
	if err := readJSON(dir, "users.json", &users); err != nil {
		return counts, err
	}
	now := time.Now()
	for _, s := range users {
		u, err := s.user(now)
		if err != nil {
			return counts, errors.Wrapf(err, "user %s", s.Email)
		}
		if err := b.Users.Insert(ctx, u); err != nil {
			return counts, errors.Wrapf(err, "user %s", s.Email)
		}
		counts.Users++
	}

	var tours []tourSeed
	if err := readJSON(dir, "tours.json", &tours); err != nil {
		return counts, err
	}
	tourIDs := make([]primitive.ObjectID, 0, len(tours))
	for _, s := range tours {
		t, err := s.Tour()
		if err != nil {
			return counts, errors.Wrapf(err, "tour %s", s.Name)
		}
		if t.ID, err = optionalID(s.ID); err != nil {
			return counts, err
		}
		if err := b.Tours.Insert(ctx, t); err != nil {
			return counts, errors.Wrapf(err, "tour %s", s.Name)
		}
		tourIDs = append(tourIDs, t.ID)
		counts.Tours++
	}

	var reviews []reviewSeed
	if err := readJSON(dir, "reviews.json", &reviews); err != nil {
		return counts, err
	}
	for i, s := range reviews {
		r, err := s.ReviewFor("", "")
		if err != nil {
			return counts, errors.Wrapf(err, "review %d", i)
		}
		if r.ID, err = optionalID(s.ID); err != nil {
			return counts, err
		}
		if err := b.Reviews.Insert(ctx, r); err != nil {
			return counts, errors.Wrapf(err, "review %d", i)
		}
		counts.Reviews++
	}

	if ratings != nil && counts.Reviews > 0 {
		for _, id := range tourIDs {
			if err := ratings.Recalculate(ctx, id); err != nil {
				return counts, err
			}
		}
	}

	logger.Info("data successfully loaded",
		zap.Int("tours", counts.Tours),
		zap.Int("users", counts.Users),
		zap.Int("reviews", counts.Reviews),
	)
	return counts, nil
}

// Delete wipes the tours, users and reviews collections.
func Delete(ctx context.Context, b *storage.Backend, logger *zap.Logger) error {
	if _, err := b.Reviews.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if _, err := b.Tours.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if _, err := b.Users.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	logger.Info("data successfully deleted")
	return nil
}

func (s userSeed) user(now time.Time) (*models.User, error) {
	u := models.NewUser(s.Name, s.Email)
	u.Photo = s.Photo
	if s.Role != "" {
		u.Role = s.Role
	}
	if s.Active != nil {
		u.Active = *s.Active
	}
	var err error
	if u.ID, err = optionalID(s.ID); err != nil {
		return nil, err
	}
	if strings.HasPrefix(s.Password, "$2") {
		u.Password = s.Password
		return u, nil
	}
	if err := u.SetPassword(s.Password, now); err != nil {
		return nil, err
	}
	// Seeded accounts have never changed their password.
	u.PasswordChangedAt = nil
	return u, nil
}

func optionalID(s string) (primitive.ObjectID, error) {
	if s == "" {
		return primitive.NilObjectID, nil
	}
	return models.ParseID("_id", s)
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "parse %s", name)
}
