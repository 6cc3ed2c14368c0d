package db

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/storage"
)

// Connect opens the MongoDB connection and verifies it with a ping
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "mongodb connection failed")
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongodb ping failed")
	}

	logger.Info("connected to mongodb", zap.String("database", cfg.Database))
	return client, nil
}

type index struct {
	collection string
	model      mongo.IndexModel
}

var indexes = []index{
	{storage.ToursCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{storage.ToursCollection, mongo.IndexModel{
		Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}},
	}},
	{storage.ToursCollection, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}},
	}},
	{storage.ToursCollection, mongo.IndexModel{
		Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}},
	}},
	{storage.ReviewsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{storage.UsersCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and geo queries.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return errors.Wrapf(err, "create index on %s", idx.collection)
		}
	}
	return nil
}
