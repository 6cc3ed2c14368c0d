package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/apifeatures"
	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
)

// sendDoc responds with a single document under data.doc.
func sendDoc(c *fiber.Ctx, status int, doc any, hidden []string) error {
	projected, err := apifeatures.Project(doc, nil, hidden)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"doc": projected},
	})
}

// sendList responds with a list and the number of returned items.
func sendList(c *fiber.Ctx, items any, n int) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"results": n,
		"data":    items,
	})
}

// parseBody decodes the request body into v. An empty body leaves v unchanged.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return apperror.Wrap(err, fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// queryParams returns the query string with repeated keys preserved.
func queryParams(c *fiber.Ctx) url.Values {
	params := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		params.Add(string(key), string(value))
	})
	return params
}

// idParam parses the :id route parameter.
func idParam(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	return models.ParseID("_id", c.Params(name))
}
