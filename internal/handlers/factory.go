package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/arzan03/natours/internal/apifeatures"
	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/storage"
)

// Resource wires a document type into the generic CRUD handlers. Only Repo
// and Build are required.
type Resource[T any] struct {
	Repo storage.Repository[T]

	// Build decodes a create payload into a new document.
	Build func(c *fiber.Ctx) (*T, error)
	// Patch decodes an update payload and applies it to doc.
	Patch func(c *fiber.Ctx, doc *T) error
	// Authorize may reject an update or delete of doc.
	Authorize func(c *fiber.Ctx, doc *T) error
	// Scope returns the ambient filter of list requests.
	Scope func(c *fiber.Ctx) (bson.M, error)
	// ExpandOne and ExpandMany replace references for read responses.
	ExpandOne  func(c *fiber.Ctx, doc *T) (any, error)
	ExpandMany func(c *fiber.Ctx, docs []T) (any, error)

	// Hidden fields are only returned when explicitly requested.
	Hidden []string
	// Whitelist names the filter fields that may repeat in the query string.
	Whitelist []string
	// StringFields are filtered with the raw query value.
	StringFields []string
}

// CreateOne stores a new document. 201 with the stored document.
func (r *Resource[T]) CreateOne(c *fiber.Ctx) error {
	doc, err := r.Build(c)
	if err != nil {
		return err
	}
	if err := r.Repo.Insert(c.UserContext(), doc); err != nil {
		return err
	}
	return sendDoc(c, fiber.StatusCreated, doc, r.Hidden)
}

// GetOne returns the document with :id, expanded.
func (r *Resource[T]) GetOne(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	doc, err := r.Repo.FindByID(c.UserContext(), id)
	if err != nil {
		return notFound(err)
	}

	var out any = doc
	if r.ExpandOne != nil {
		if out, err = r.ExpandOne(c, doc); err != nil {
			return err
		}
	}
	return sendDoc(c, fiber.StatusOK, out, r.Hidden)
}

// GetAll lists documents through the query-feature builder.
func (r *Resource[T]) GetAll(c *fiber.Ctx) error {
	var base bson.M
	if r.Scope != nil {
		var err error
		if base, err = r.Scope(c); err != nil {
			return err
		}
	}

	features := apifeatures.New(base, queryParams(c),
		apifeatures.WithHidden(r.Hidden...),
		apifeatures.WithWhitelist(r.Whitelist...),
		apifeatures.WithStringFields(r.StringFields...),
	).Filter().Sort().LimitFields().Paginate()

	docs, err := r.Repo.Find(c.UserContext(), features.Query())
	if err != nil {
		return err
	}

	var out any = docs
	if r.ExpandMany != nil {
		if out, err = r.ExpandMany(c, docs); err != nil {
			return err
		}
	}
	projected, err := apifeatures.Project(out, features.Fields(), r.Hidden)
	if err != nil {
		return err
	}
	return sendList(c, projected, len(docs))
}

// UpdateOne patches the document with :id and re-validates it.
func (r *Resource[T]) UpdateOne(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	doc, err := r.Repo.FindByID(c.UserContext(), id)
	if err != nil {
		return notFound(err)
	}
	if r.Authorize != nil {
		if err := r.Authorize(c, doc); err != nil {
			return err
		}
	}
	if r.Patch != nil {
		if err := r.Patch(c, doc); err != nil {
			return err
		}
	}
	if err := r.Repo.Replace(c.UserContext(), doc); err != nil {
		return notFound(err)
	}
	return sendDoc(c, fiber.StatusOK, doc, r.Hidden)
}

// DeleteOne removes the document with :id. 204 without a body.
func (r *Resource[T]) DeleteOne(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if r.Authorize != nil {
		doc, err := r.Repo.FindByID(c.UserContext(), id)
		if err != nil {
			return notFound(err)
		}
		if err := r.Authorize(c, doc); err != nil {
			return err
		}
	}
	if _, err := r.Repo.DeleteByID(c.UserContext(), id); err != nil {
		return notFound(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound(apperror.MsgNoDocument)
	}
	return err
}
