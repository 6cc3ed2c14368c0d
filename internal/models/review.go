package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review" validate:"required"`
	Rating    *float64           `bson:"rating,omitempty" json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour" validate:"required"`
	User      primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	Version   int                `bson:"__v" json:"__v"`
}

func (r *Review) GetID() primitive.ObjectID   { return r.ID }
func (r *Review) SetID(id primitive.ObjectID) { r.ID = id }

// Validate checks the review schema.
func (r *Review) Validate() error { return Validate(r) }

// Prepare normalizes the document before it is written.
func (r *Review) Prepare() {
	r.Review = strings.TrimSpace(r.Review)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
}

// ReviewView is a review with its author expanded. Tour is nil when the
// review is listed under its tour.
type ReviewView struct {
	*Review
	Tour *primitive.ObjectID `json:"tour,omitempty"`
	User *UserSummary        `json:"user"`
}

// ReviewInput is the create payload. Tour and user may be filled from the route and session.
type ReviewInput struct {
	Review string   `json:"review"`
	Rating *float64 `json:"rating"`
	Tour   string   `json:"tour"`
	User   string   `json:"user"`
}

// ReviewFor builds a review; tourID and userID take precedence over the payload when set.
func (in *ReviewInput) ReviewFor(tourID, userID string) (*Review, error) {
	if tourID == "" {
		tourID = in.Tour
	}
	if userID == "" {
		userID = in.User
	}
	r := &Review{Review: in.Review, Rating: in.Rating}
	if tourID != "" {
		id, err := ParseID("tour", tourID)
		if err != nil {
			return nil, err
		}
		r.Tour = id
	}
	if userID != "" {
		id, err := ParseID("user", userID)
		if err != nil {
			return nil, err
		}
		r.User = id
	}
	return r, nil
}

// ReviewPatch is the update payload.
type ReviewPatch struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating"`
}

// Apply copies the set fields onto r.
func (p *ReviewPatch) Apply(r *Review) error {
	setIf(&r.Review, p.Review)
	if p.Rating != nil {
		r.Rating = p.Rating
	}
	return nil
}
