package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCollection is an in-process Repository. Documents are kept in their
// BSON form so filters, sorts and projections behave like the MongoDB ones.
type MemoryCollection[T any, PT interface {
	*T
	Document
}] struct {
	mu     sync.RWMutex
	base   bson.M
	unique [][]string
	docs   []bson.M
}

// NewMemoryCollection creates an empty collection. Each unique entry is a
// compound key that no two documents may share.
func NewMemoryCollection[T any, PT interface {
	*T
	Document
}](base bson.M, unique ...[]string) *MemoryCollection[T, PT] {
	return &MemoryCollection[T, PT]{base: base, unique: unique}
}

func (c *MemoryCollection[T, PT]) Insert(_ context.Context, doc *T) error {
	if err := beforeWrite(doc); err != nil {
		return err
	}
	p := PT(doc)
	if p.GetID().IsZero() {
		p.SetID(primitive.NewObjectID())
	}
	m, err := toDoc(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(p.GetID(), nil) >= 0 {
		return &DuplicateKeyError{Field: "_id", Value: p.GetID().Hex()}
	}
	if err := c.checkUnique(m, primitive.NilObjectID); err != nil {
		return err
	}
	c.docs = append(c.docs, m)
	afterLoad(doc)
	return nil
}

func (c *MemoryCollection[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id})
}

func (c *MemoryCollection[T, PT]) FindOne(_ context.Context, filter bson.M) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f := scoped(c.base, filter)
	for _, d := range c.docs {
		if matches(d, f) {
			return fromDoc[T](d)
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryCollection[T, PT]) Find(_ context.Context, q Query) ([]T, error) {
	c.mu.RLock()
	f := scoped(c.base, q.Filter)
	var hits []bson.M
	for _, d := range c.docs {
		if matches(d, f) {
			hits = append(hits, d)
		}
	}
	c.mu.RUnlock()

	sortDocs(hits, q.Sort)
	if q.Skip > 0 {
		if q.Skip >= int64(len(hits)) {
			hits = nil
		} else {
			hits = hits[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(hits)) > q.Limit {
		hits = hits[:q.Limit]
	}

	out := make([]T, 0, len(hits))
	for _, d := range hits {
		doc, err := fromDoc[T](project(d, q.Projection))
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (c *MemoryCollection[T, PT]) Replace(_ context.Context, doc *T) error {
	if err := beforeWrite(doc); err != nil {
		return err
	}
	id := PT(doc).GetID()
	m, err := toDoc(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id, c.base)
	if i < 0 {
		return ErrNotFound
	}
	if err := c.checkUnique(m, id); err != nil {
		return err
	}
	c.docs[i] = m
	afterLoad(doc)
	return nil
}

func (c *MemoryCollection[T, PT]) Update(_ context.Context, id primitive.ObjectID, u Update) error {
	set := bson.M{}
	if len(u.Set) > 0 {
		var err error
		if set, err = toDoc(u.Set); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id, c.base)
	if i < 0 {
		return ErrNotFound
	}
	next := bson.M{}
	for k, v := range c.docs[i] {
		next[k] = v
	}
	for k, v := range set {
		setPath(next, k, v)
	}
	for _, k := range u.Unset {
		unsetPath(next, k)
	}
	if err := c.checkUnique(next, id); err != nil {
		return err
	}
	c.docs[i] = next
	return nil
}

func (c *MemoryCollection[T, PT]) DeleteByID(_ context.Context, id primitive.ObjectID) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id, c.base)
	if i < 0 {
		return nil, ErrNotFound
	}
	d := c.docs[i]
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return fromDoc[T](d)
}

// DeleteMany ignores the base filter so seed data can be wiped completely.
func (c *MemoryCollection[T, PT]) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0]
	var n int64
	for _, d := range c.docs {
		if matches(d, filter) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return n, nil
}

// Len returns the number of stored documents, including soft-excluded ones.
func (c *MemoryCollection[T, PT]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *MemoryCollection[T, PT]) indexOf(id primitive.ObjectID, base bson.M) int {
	f := scoped(base, bson.M{"_id": id})
	for i, d := range c.docs {
		if matches(d, f) {
			return i
		}
	}
	return -1
}

func (c *MemoryCollection[T, PT]) checkUnique(m bson.M, self primitive.ObjectID) error {
	for _, keys := range c.unique {
		want := make([]any, len(keys))
		complete := true
		for i, k := range keys {
			v, ok := lookup(m, k)
			if !ok {
				complete = false
				break
			}
			want[i] = v
		}
		if !complete {
			continue
		}
		for _, d := range c.docs {
			if id, _ := d["_id"].(primitive.ObjectID); id == self && !self.IsZero() {
				continue
			}
			same := true
			for i, k := range keys {
				v, ok := lookup(d, k)
				if !ok || !equal(v, want[i]) {
					same = false
					break
				}
			}
			if same {
				return &DuplicateKeyError{Field: strings.Join(keys, ", "), Value: fmt.Sprint(want...)}
			}
		}
	}
	return nil
}

func setPath(doc bson.M, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next := asDoc(cur[p])
		if next == nil {
			next = bson.M{}
		}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		cur = asDoc(cur[p])
		if cur == nil {
			return
		}
	}
	delete(cur, parts[len(parts)-1])
}
