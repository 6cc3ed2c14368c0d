package storage

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/natours/internal/models"
)

// Collection names
const (
	ToursCollection   = "tours"
	ReviewsCollection = "reviews"
	UsersCollection   = "users"
)

// UserBaseFilter hides deactivated accounts from every read.
var UserBaseFilter = bson.M{"active": bson.M{"$ne": false}}

// Backend bundles the repositories and aggregate readers of one store.
type Backend struct {
	Tours     Repository[models.Tour]
	Reviews   Repository[models.Review]
	Users     Repository[models.User]
	Analytics TourAnalytics
	Ratings   RatingSource
}

// NewMongoBackend builds a Backend over db.
func NewMongoBackend(db *mongo.Database) *Backend {
	tours := db.Collection(ToursCollection)
	reviews := db.Collection(ReviewsCollection)
	return &Backend{
		Tours:     NewCollection[models.Tour](tours, TourBaseFilter),
		Reviews:   NewCollection[models.Review](reviews, nil),
		Users:     NewCollection[models.User](db.Collection(UsersCollection), UserBaseFilter),
		Analytics: NewMongoTourAnalytics(tours),
		Ratings:   NewMongoRatings(reviews),
	}
}

// NewMemoryBackend builds an empty in-process Backend with the same unique
// keys the MongoDB indexes enforce.
func NewMemoryBackend() *Backend {
	tours := NewMemoryCollection[models.Tour](TourBaseFilter, []string{"name"})
	reviews := NewMemoryCollection[models.Review](nil, []string{"tour", "user"})
	users := NewMemoryCollection[models.User](UserBaseFilter, []string{"email"})
	return &Backend{
		Tours:     tours,
		Reviews:   reviews,
		Users:     users,
		Analytics: NewScanTourAnalytics(tours),
		Ratings:   NewScanRatings(reviews),
	}
}
