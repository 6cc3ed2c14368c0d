package storage

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/models"
)

// ScanTourAnalytics implements TourAnalytics by scanning a tour Repository.
// It backs the in-memory store.
type ScanTourAnalytics struct {
	tours Repository[models.Tour]
}

func NewScanTourAnalytics(tours Repository[models.Tour]) *ScanTourAnalytics {
	return &ScanTourAnalytics{tours: tours}
}

func (a *ScanTourAnalytics) Stats(ctx context.Context) ([]models.TourStats, error) {
	tours, err := a.tours.Find(ctx, Query{Filter: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}})
	if err != nil {
		return nil, err
	}

	groups := map[models.Difficulty]*models.TourStats{}
	sums := map[models.Difficulty][2]float64{}
	var order []models.Difficulty
	for _, t := range tours {
		g, ok := groups[t.Difficulty]
		if !ok {
			g = &models.TourStats{Difficulty: t.Difficulty, MinPrice: t.Price, MaxPrice: t.Price}
			groups[t.Difficulty] = g
			order = append(order, t.Difficulty)
		}
		g.NumTours++
		g.NumRatings += t.RatingsQuantity
		if t.Price < g.MinPrice {
			g.MinPrice = t.Price
		}
		if t.Price > g.MaxPrice {
			g.MaxPrice = t.Price
		}
		s := sums[t.Difficulty]
		sums[t.Difficulty] = [2]float64{s[0] + t.RatingsAverage, s[1] + t.Price}
	}

	stats := make([]models.TourStats, 0, len(order))
	for _, d := range order {
		g := groups[d]
		g.AvgRating = sums[d][0] / float64(g.NumTours)
		g.AvgPrice = sums[d][1] / float64(g.NumTours)
		stats = append(stats, *g)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].AvgPrice < stats[j].AvgPrice })
	return stats, nil
}

func (a *ScanTourAnalytics) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	tours, err := a.tours.Find(ctx, Query{})
	if err != nil {
		return nil, err
	}

	months := map[int]*models.MonthlyPlan{}
	for _, t := range tours {
		for _, d := range t.StartDates {
			if d.UTC().Year() != year {
				continue
			}
			m := int(d.UTC().Month())
			p, ok := months[m]
			if !ok {
				p = &models.MonthlyPlan{Month: m, Tours: []string{}}
				months[m] = p
			}
			p.NumTourStarts++
			p.Tours = append(p.Tours, t.Name)
		}
	}

	plan := make([]models.MonthlyPlan, 0, len(months))
	for _, p := range months {
		plan = append(plan, *p)
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].NumTourStarts != plan[j].NumTourStarts {
			return plan[i].NumTourStarts > plan[j].NumTourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	if len(plan) > 12 {
		plan = plan[:12]
	}
	return plan, nil
}

func (a *ScanTourAnalytics) Within(ctx context.Context, center GeoPoint, radius float64) ([]models.Tour, error) {
	tours, err := a.tours.Find(ctx, Query{})
	if err != nil {
		return nil, err
	}
	within := []models.Tour{}
	for _, t := range tours {
		p, ok := startPoint(&t)
		if ok && greatCircle(center, p) <= radius {
			within = append(within, t)
		}
	}
	return within, nil
}

func (a *ScanTourAnalytics) Distances(ctx context.Context, origin GeoPoint, multiplier float64) ([]models.TourDistance, error) {
	tours, err := a.tours.Find(ctx, Query{})
	if err != nil {
		return nil, err
	}
	out := []models.TourDistance{}
	for _, t := range tours {
		p, ok := startPoint(&t)
		if !ok {
			continue
		}
		meters := greatCircle(origin, p) * meanEarthRadiusMeters
		out = append(out, models.TourDistance{ID: t.ID, Name: t.Name, Distance: meters * multiplier})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

// ScanRatings implements RatingSource by scanning a review Repository.
type ScanRatings struct {
	reviews Repository[models.Review]
}

func NewScanRatings(reviews Repository[models.Review]) *ScanRatings {
	return &ScanRatings{reviews: reviews}
}

func (r *ScanRatings) RatingStats(ctx context.Context, tourID primitive.ObjectID) (int, float64, error) {
	reviews, err := r.reviews.Find(ctx, Query{Filter: bson.M{"tour": tourID}})
	if err != nil {
		return 0, 0, err
	}
	var sum float64
	var rated int
	for _, rv := range reviews {
		if rv.Rating != nil {
			sum += *rv.Rating
			rated++
		}
	}
	if rated == 0 {
		return 0, 0, nil
	}
	return rated, sum / float64(rated), nil
}
