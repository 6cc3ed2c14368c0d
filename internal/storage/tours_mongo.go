package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/natours/internal/models"
)

// TourBaseFilter hides secret tours from every read.
var TourBaseFilter = bson.M{"secretTour": bson.M{"$ne": true}}

// MongoTourAnalytics implements TourAnalytics with aggregation pipelines.
type MongoTourAnalytics struct {
	tours *mongo.Collection
}

func NewMongoTourAnalytics(tours *mongo.Collection) *MongoTourAnalytics {
	return &MongoTourAnalytics{tours: tours}
}

func (a *MongoTourAnalytics) Stats(ctx context.Context) ([]models.TourStats, error) {
	return aggregate[models.TourStats](ctx, a.tours, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$difficulty",
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	})
}

func (a *MongoTourAnalytics) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return aggregate[models.MonthlyPlan](ctx, a.tours, mongo.Pipeline{
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}, {Key: "month", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	})
}

func (a *MongoTourAnalytics) Within(ctx context.Context, center GeoPoint, radius float64) ([]models.Tour, error) {
	filter := bson.M{"$and": bson.A{
		TourBaseFilter,
		bson.M{"startLocation": bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{center.Lng, center.Lat}, radius},
		}}},
	}}
	cursor, err := a.tours.Find(ctx, filter)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	tours := []models.Tour{}
	for cursor.Next(ctx) {
		var t models.Tour
		if err := cursor.Decode(&t); err != nil {
			return nil, err
		}
		t.AfterLoad()
		tours = append(tours, t)
	}
	return tours, wrapError(cursor.Err())
}

func (a *MongoTourAnalytics) Distances(ctx context.Context, origin GeoPoint, multiplier float64) ([]models.TourDistance, error) {
	return aggregate[models.TourDistance](ctx, a.tours, mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":               bson.M{"type": "Point", "coordinates": bson.A{origin.Lng, origin.Lat}},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
			"spherical":          true,
			"query":              TourBaseFilter,
		}}},
		{{Key: "$project", Value: bson.M{"name": 1, "distance": 1}}},
	})
}

// MongoRatings implements RatingSource over the reviews collection.
type MongoRatings struct {
	reviews *mongo.Collection
}

func NewMongoRatings(reviews *mongo.Collection) *MongoRatings {
	return &MongoRatings{reviews: reviews}
}

func (r *MongoRatings) RatingStats(ctx context.Context, tourID primitive.ObjectID) (int, float64, error) {
	type group struct {
		NRating   int     `bson:"nRating"`
		AvgRating float64 `bson:"avgRating"`
	}
	stats, err := aggregate[group](ctx, r.reviews, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID, "rating": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	})
	if err != nil || len(stats) == 0 {
		return 0, 0, err
	}
	return stats[0].NRating, stats[0].AvgRating, nil
}

// aggregate runs pipeline on col. Pipelines over tours get the secret-tour
// filter as their first stage unless they start with $geoNear, which must
// stay first and filters through its own query option.
func aggregate[T any](ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	if col.Name() == ToursCollection && (len(pipeline) == 0 || pipeline[0][0].Key != "$geoNear") {
		pipeline = append(mongo.Pipeline{{{Key: "$match", Value: TourBaseFilter}}}, pipeline...)
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, wrapError(err)
	}
	return results, nil
}
