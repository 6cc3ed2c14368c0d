package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB Repository for one document type.
type Collection[T any, PT interface {
	*T
	Document
}] struct {
	col  *mongo.Collection
	base bson.M
}

// NewCollection wraps col. base is merged into every filter.
func NewCollection[T any, PT interface {
	*T
	Document
}](col *mongo.Collection, base bson.M) *Collection[T, PT] {
	return &Collection[T, PT]{col: col, base: base}
}

func (c *Collection[T, PT]) Insert(ctx context.Context, doc *T) error {
	if err := beforeWrite(doc); err != nil {
		return err
	}
	p := PT(doc)
	if p.GetID().IsZero() {
		p.SetID(primitive.NewObjectID())
	}
	if _, err := c.col.InsertOne(ctx, doc); err != nil {
		return wrapError(err)
	}
	afterLoad(doc)
	return nil
}

func (c *Collection[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id})
}

func (c *Collection[T, PT]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := c.col.FindOne(ctx, scoped(c.base, filter)).Decode(&doc); err != nil {
		return nil, wrapError(err)
	}
	afterLoad(&doc)
	return &doc, nil
}

func (c *Collection[T, PT]) Find(ctx context.Context, q Query) ([]T, error) {
	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if len(q.Projection) > 0 {
		opts.SetProjection(q.Projection)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := c.col.Find(ctx, scoped(c.base, q.Filter), opts)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		afterLoad(&doc)
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapError(err)
	}
	return docs, nil
}

func (c *Collection[T, PT]) Replace(ctx context.Context, doc *T) error {
	if err := beforeWrite(doc); err != nil {
		return err
	}
	filter := scoped(c.base, bson.M{"_id": PT(doc).GetID()})
	res, err := c.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	afterLoad(doc)
	return nil
}

func (c *Collection[T, PT]) Update(ctx context.Context, id primitive.ObjectID, u Update) error {
	res, err := c.col.UpdateOne(ctx, scoped(c.base, bson.M{"_id": id}), updateDoc(u))
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Collection[T, PT]) DeleteByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	err := c.col.FindOneAndDelete(ctx, scoped(c.base, bson.M{"_id": id})).Decode(&doc)
	if err != nil {
		return nil, wrapError(err)
	}
	return &doc, nil
}

// DeleteMany ignores the base filter so seed data can be wiped completely.
func (c *Collection[T, PT]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	res, err := c.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}
