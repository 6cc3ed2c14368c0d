package models

import (
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty of a tour
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// DefaultRatingsAverage is used for tours without reviews.
const DefaultRatingsAverage = 4.5

// TourHiddenFields are left out of responses unless explicitly requested.
var TourHiddenFields = []string{"createdAt"}

// GeoPoint is a GeoJSON point with optional tour metadata.
// Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"omitempty,len=2"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name" validate:"required,min=5,max=40"`
	Slug            string               `bson:"slug" json:"slug"`
	Duration        float64              `bson:"duration" json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      Difficulty           `bson:"difficulty" json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity" validate:"gte=0"`
	Price           float64              `bson:"price" json:"price" validate:"required,gt=0"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string               `bson:"summary" json:"summary" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover" validate:"required"`
	Images          []string             `bson:"images" json:"images"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time          `bson:"startDates" json:"startDates"`
	SecretTour      bool                 `bson:"secretTour" json:"secretTour"`
	StartLocation   *GeoPoint            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []GeoPoint           `bson:"locations" json:"locations" validate:"dive"`
	Guides          []primitive.ObjectID `bson:"guides" json:"guides"`
	Version         int                  `bson:"__v" json:"__v"`

	DurationWeeks float64 `bson:"-" json:"durationWeeks"`
}

func (t *Tour) GetID() primitive.ObjectID   { return t.ID }
func (t *Tour) SetID(id primitive.ObjectID) { t.ID = id }

// Validate checks the tour schema.
func (t *Tour) Validate() error { return Validate(t) }

// Prepare normalizes the document before it is written.
func (t *Tour) Prepare() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = slug.Make(t.Name)
	t.RatingsAverage = RoundRating(t.RatingsAverage)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []GeoPoint{}
	}
	if t.Guides == nil {
		t.Guides = []primitive.ObjectID{}
	}
}

// AfterLoad fills derived fields.
func (t *Tour) AfterLoad() {
	t.DurationWeeks = t.Duration / 7
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// TourView is a tour with its references expanded for responses.
type TourView struct {
	*Tour
	Guides  []UserSummary `json:"guides"`
	Reviews []ReviewView  `json:"reviews,omitempty"`
}

// TourInput is the create payload.
type TourInput struct {
	Name            string     `json:"name"`
	Duration        float64    `json:"duration"`
	MaxGroupSize    int        `json:"maxGroupSize"`
	Difficulty      Difficulty `json:"difficulty"`
	RatingsAverage  *float64   `json:"ratingsAverage"`
	RatingsQuantity int        `json:"ratingsQuantity"`
	Price           float64    `json:"price"`
	PriceDiscount   float64    `json:"priceDiscount"`
	Summary         string     `json:"summary"`
	Description     string     `json:"description"`
	ImageCover      string     `json:"imageCover"`
	Images          []string   `json:"images"`
	StartDates      []Date     `json:"startDates"`
	SecretTour      bool       `json:"secretTour"`
	StartLocation   *GeoPoint  `json:"startLocation"`
	Locations       []GeoPoint `json:"locations"`
	Guides          []string   `json:"guides"`
}

// Tour converts the payload into a new document with defaults filled.
func (in *TourInput) Tour() (*Tour, error) {
	guides, err := ParseIDs("guides", in.Guides)
	if err != nil {
		return nil, err
	}
	avg := DefaultRatingsAverage
	if in.RatingsAverage != nil {
		avg = *in.RatingsAverage
	}
	return &Tour{
		Name:            in.Name,
		Duration:        in.Duration,
		MaxGroupSize:    in.MaxGroupSize,
		Difficulty:      in.Difficulty,
		RatingsAverage:  avg,
		RatingsQuantity: in.RatingsQuantity,
		Price:           in.Price,
		PriceDiscount:   in.PriceDiscount,
		Summary:         in.Summary,
		Description:     in.Description,
		ImageCover:      in.ImageCover,
		Images:          in.Images,
		StartDates:      toTimes(in.StartDates),
		SecretTour:      in.SecretTour,
		StartLocation:   in.StartLocation,
		Locations:       in.Locations,
		Guides:          guides,
	}, nil
}

// TourPatch is the update payload. Nil fields are left unchanged.
type TourPatch struct {
	Name            *string     `json:"name"`
	Duration        *float64    `json:"duration"`
	MaxGroupSize    *int        `json:"maxGroupSize"`
	Difficulty      *Difficulty `json:"difficulty"`
	RatingsAverage  *float64    `json:"ratingsAverage"`
	RatingsQuantity *int        `json:"ratingsQuantity"`
	Price           *float64    `json:"price"`
	PriceDiscount   *float64    `json:"priceDiscount"`
	Summary         *string     `json:"summary"`
	Description     *string     `json:"description"`
	ImageCover      *string     `json:"imageCover"`
	Images          []string    `json:"images"`
	StartDates      []Date      `json:"startDates"`
	SecretTour      *bool       `json:"secretTour"`
	StartLocation   *GeoPoint   `json:"startLocation"`
	Locations       []GeoPoint  `json:"locations"`
	Guides          []string    `json:"guides"`
}

// Apply copies the set fields onto t.
func (p *TourPatch) Apply(t *Tour) error {
	if p.Guides != nil {
		guides, err := ParseIDs("guides", p.Guides)
		if err != nil {
			return err
		}
		t.Guides = guides
	}
	setIf(&t.Name, p.Name)
	setIf(&t.Duration, p.Duration)
	setIf(&t.MaxGroupSize, p.MaxGroupSize)
	setIf(&t.Difficulty, p.Difficulty)
	setIf(&t.RatingsAverage, p.RatingsAverage)
	setIf(&t.RatingsQuantity, p.RatingsQuantity)
	setIf(&t.Price, p.Price)
	setIf(&t.PriceDiscount, p.PriceDiscount)
	setIf(&t.Summary, p.Summary)
	setIf(&t.Description, p.Description)
	setIf(&t.ImageCover, p.ImageCover)
	setIf(&t.SecretTour, p.SecretTour)
	if p.Images != nil {
		t.Images = p.Images
	}
	if p.StartDates != nil {
		t.StartDates = toTimes(p.StartDates)
	}
	if p.StartLocation != nil {
		t.StartLocation = p.StartLocation
	}
	if p.Locations != nil {
		t.Locations = p.Locations
	}
	return nil
}

// TourStats is one difficulty bucket of the tour statistics.
type TourStats struct {
	Difficulty Difficulty `bson:"_id" json:"_id"`
	NumTours   int        `bson:"numTours" json:"numTours"`
	NumRatings int        `bson:"numRatings" json:"numRatings"`
	AvgRating  float64    `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64    `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64    `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64    `bson:"maxPrice" json:"maxPrice"`
}

// MonthlyPlan counts tour starts in one month of a year.
type MonthlyPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// TourDistance is a tour with its distance from a reference point.
type TourDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
