package services

import (
	"context"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
	"github.com/arzan03/natours/internal/utils"
)

// Distance multipliers from meters.
const (
	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// TourService expands tours and runs the aggregate endpoints
type TourService struct {
	tours     storage.Repository[models.Tour]
	users     storage.Repository[models.User]
	reviews   *ReviewService
	analytics storage.TourAnalytics
}

func NewTourService(tours storage.Repository[models.Tour], users storage.Repository[models.User], reviews *ReviewService, analytics storage.TourAnalytics) *TourService {
	return &TourService{tours: tours, users: users, reviews: reviews, analytics: analytics}
}

// Repository exposes the tour repository to the generic handlers.
func (s *TourService) Repository() storage.Repository[models.Tour] {
	return s.tours
}

// ExpandGuides replaces guide ids with the guides' public profiles.
func (s *TourService) ExpandGuides(ctx context.Context, tours []models.Tour) ([]models.TourView, error) {
	var ids []primitive.ObjectID
	for _, t := range tours {
		ids = append(ids, t.Guides...)
	}
	guides, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.TourView, 0, len(tours))
	for i := range tours {
		t := &tours[i]
		view := models.TourView{Tour: t, Guides: []models.UserSummary{}}
		for _, id := range t.Guides {
			if g, ok := guides[id]; ok {
				view.Guides = append(view.Guides, g.Guide())
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ExpandTour loads the guides and reviews of t concurrently.
func (s *TourService) ExpandTour(ctx context.Context, t *models.Tour) (*models.TourView, error) {
	results, err := utils.RunParallelTasks(
		func() (any, error) {
			return s.ExpandGuides(ctx, []models.Tour{*t})
		},
		func() (any, error) {
			reviews, err := s.reviews.Repository().Find(ctx, storage.Query{
				Filter: bson.M{"tour": t.ID},
				Sort:   bson.D{{Key: "createdAt", Value: -1}},
			})
			if err != nil {
				return nil, err
			}
			return s.reviews.Expand(ctx, reviews, false)
		},
	)
	if err != nil {
		return nil, err
	}

	view := results[0].([]models.TourView)[0]
	view.Tour = t
	view.Reviews = results[1].([]models.ReviewView)
	return &view, nil
}

// Stats returns the per-difficulty statistics of highly rated tours.
func (s *TourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	return s.analytics.Stats(ctx)
}

// MonthlyPlan returns the busiest months of yearParam.
func (s *TourService) MonthlyPlan(ctx context.Context, yearParam string) ([]models.MonthlyPlan, error) {
	year, err := strconv.Atoi(yearParam)
	if err != nil || year < 1 || year > 9999 {
		return nil, apperror.BadRequest("Please provide a valid year.")
	}
	return s.analytics.MonthlyPlan(ctx, year)
}

// Within returns the tours starting within distance of latlng.
func (s *TourService) Within(ctx context.Context, distanceParam, latlng, unit string) ([]models.Tour, error) {
	center, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	radiusOfEarth, err := earthRadius(unit)
	if err != nil {
		return nil, err
	}
	distance, err := strconv.ParseFloat(distanceParam, 64)
	if err != nil || distance <= 0 {
		return nil, apperror.BadRequest("Please provide a positive distance.")
	}
	return s.analytics.Within(ctx, center, distance/radiusOfEarth)
}

// Distances returns the distance from latlng to the start of every tour.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]models.TourDistance, error) {
	origin, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	multiplier := metersToKm
	switch unit {
	case "mi":
		multiplier = metersToMiles
	case "km":
	default:
		return nil, apperror.BadRequest("Please provide the unit as mi or km.")
	}
	return s.analytics.Distances(ctx, origin, multiplier)
}

func earthRadius(unit string) (float64, error) {
	switch unit {
	case "mi":
		return storage.EarthRadiusMiles, nil
	case "km":
		return storage.EarthRadiusKm, nil
	}
	return 0, apperror.BadRequest("Please provide the unit as mi or km.")
}

func parseLatLng(s string) (storage.GeoPoint, error) {
	invalid := apperror.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return storage.GeoPoint{}, invalid
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return storage.GeoPoint{}, invalid
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return storage.GeoPoint{}, invalid
	}
	return storage.GeoPoint{Lng: lng, Lat: lat}, nil
}
