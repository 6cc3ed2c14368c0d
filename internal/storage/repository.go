package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is implemented by every stored model.
type Document interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
}

// Optional document hooks, run by both repository implementations.
type (
	preparer  interface{ Prepare() }
	validator interface{ Validate() error }
	loader    interface{ AfterLoad() }
)

// Query is a fully built read: filter, order, projection and window.
type Query struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.D
	Skip       int64
	Limit      int64
}

// Update is a partial write applied without running schema validation.
type Update struct {
	Set   bson.M
	Unset []string
}

// Repository is the persistence contract shared by the MongoDB and in-memory stores.
// Every method applies the collection's base filter, so soft-excluded documents
// (secret tours, inactive users) behave as if they did not exist.
type Repository[T any] interface {
	Insert(ctx context.Context, doc *T) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Replace(ctx context.Context, doc *T) error
	Update(ctx context.Context, id primitive.ObjectID, u Update) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
}

// beforeWrite runs the prepare and validate hooks.
func beforeWrite(doc any) error {
	if p, ok := doc.(preparer); ok {
		p.Prepare()
	}
	if v, ok := doc.(validator); ok {
		return v.Validate()
	}
	return nil
}

func afterLoad(doc any) {
	if l, ok := doc.(loader); ok {
		l.AfterLoad()
	}
}

// scoped combines a base filter with a caller filter.
func scoped(base, filter bson.M) bson.M {
	if len(base) == 0 {
		if filter == nil {
			return bson.M{}
		}
		return filter
	}
	if len(filter) == 0 {
		return base
	}
	return bson.M{"$and": bson.A{base, filter}}
}

func updateDoc(u Update) bson.M {
	doc := bson.M{}
	if len(u.Set) > 0 {
		doc["$set"] = u.Set
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, f := range u.Unset {
			unset[f] = ""
		}
		doc["$unset"] = unset
	}
	return doc
}
