package storage

import (
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/models"
)

// Earth radius in the units accepted by the geo endpoints.
const (
	EarthRadiusMiles = 3963.2
	EarthRadiusKm    = 6378.1
)

// GeoPoint is a longitude/latitude pair in degrees.
type GeoPoint struct {
	Lng float64
	Lat float64
}

// TourAnalytics runs the aggregate reads over tours. Secret tours never appear.
type TourAnalytics interface {
	// Stats groups tours rated 4.5 or better by difficulty, cheapest first.
	Stats(ctx context.Context) ([]models.TourStats, error)
	// MonthlyPlan counts tour starts per month of year, busiest month first.
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
	// Within returns tours starting inside the spherical cap around center.
	// radius is in radians.
	Within(ctx context.Context, center GeoPoint, radius float64) ([]models.Tour, error)
	// Distances returns every tour with its start distance from origin, in
	// meters scaled by multiplier, nearest first.
	Distances(ctx context.Context, origin GeoPoint, multiplier float64) ([]models.TourDistance, error)
}

// RatingSource aggregates the ratings of one tour. Reviews without a rating
// are left out of both the count and the average.
type RatingSource interface {
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (count int, avg float64, err error)
}

// greatCircle returns the angular distance in radians between two points.
func greatCircle(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// meanEarthRadiusMeters matches the spherical model MongoDB uses for $geoNear.
const meanEarthRadiusMeters = 6378100.0

func startPoint(t *models.Tour) (GeoPoint, bool) {
	if t.StartLocation == nil || len(t.StartLocation.Coordinates) != 2 {
		return GeoPoint{}, false
	}
	return GeoPoint{Lng: t.StartLocation.Coordinates[0], Lat: t.StartLocation.Coordinates[1]}, true
}
