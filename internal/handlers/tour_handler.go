package handlers

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/natours/internal/apifeatures"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
	"github.com/arzan03/natours/internal/storage"
)

// TourFilterWhitelist lists the tour fields that may repeat in a query
// string, e.g. ?duration=5&duration=9.
var TourFilterWhitelist = []string{
	"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price",
}

// tourStringFields are filtered verbatim, so ?name=12345 stays a string.
var tourStringFields = []string{"name", "slug", "summary", "description", "difficulty", "imageCover"}

// TourHandler serves /api/v1/tours
type TourHandler struct {
	tours    *services.TourService
	images   *services.ImageService
	resource *Resource[models.Tour]
}

func NewTourHandler(tours *services.TourService, images *services.ImageService) *TourHandler {
	return &TourHandler{
		tours:  tours,
		images: images,
		resource: &Resource[models.Tour]{
			Repo: tours.Repository(),
			Build: func(c *fiber.Ctx) (*models.Tour, error) {
				var in models.TourInput
				if err := parseBody(c, &in); err != nil {
					return nil, err
				}
				return in.Tour()
			},
			Patch: func(c *fiber.Ctx, t *models.Tour) error {
				var patch models.TourPatch
				if err := parseBody(c, &patch); err != nil {
					return err
				}
				return patch.Apply(t)
			},
			ExpandOne: func(c *fiber.Ctx, t *models.Tour) (any, error) {
				return tours.ExpandTour(c.UserContext(), t)
			},
			ExpandMany: func(c *fiber.Ctx, ts []models.Tour) (any, error) {
				return tours.ExpandGuides(c.UserContext(), ts)
			},
			Hidden:       models.TourHiddenFields,
			Whitelist:    TourFilterWhitelist,
			StringFields: tourStringFields,
		},
	}
}

func (h *TourHandler) GetAllTours(c *fiber.Ctx) error { return h.resource.GetAll(c) }
func (h *TourHandler) GetTour(c *fiber.Ctx) error     { return h.resource.GetOne(c) }
func (h *TourHandler) CreateTour(c *fiber.Ctx) error  { return h.resource.CreateOne(c) }
func (h *TourHandler) UpdateTour(c *fiber.Ctx) error  { return h.resource.UpdateOne(c) }
func (h *TourHandler) DeleteTour(c *fiber.Ctx) error  { return h.resource.DeleteOne(c) }

// AliasTopTours presets the query of the five best rated, cheapest tours.
func AliasTopTours(c *fiber.Ctx) error {
	args := c.Context().QueryArgs()
	args.Set("limit", "5")
	args.Set("page", "1")
	args.Set("sort", "-ratingsAverage,price")
	args.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return c.Next()
}

// TourStats returns per-difficulty statistics
func (h *TourHandler) TourStats(c *fiber.Ctx) error {
	stats, err := h.tours.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": stats})
}

// MonthlyPlan returns the tour starts per month of :year
func (h *TourHandler) MonthlyPlan(c *fiber.Ctx) error {
	plan, err := h.tours.MonthlyPlan(c.UserContext(), c.Params("year"))
	if err != nil {
		return err
	}
	return sendList(c, plan, len(plan))
}

// ToursWithin returns tours starting within :distance of :latlng
func (h *TourHandler) ToursWithin(c *fiber.Ctx) error {
	tours, err := h.tours.Within(c.UserContext(), c.Params("distance"), c.Params("latlng"), c.Params("unit"))
	if err != nil {
		return err
	}
	projected, err := apifeatures.Project(tours, nil, models.TourHiddenFields)
	if err != nil {
		return err
	}
	return sendList(c, projected, len(tours))
}

// Distances returns the distance from :latlng to every tour
func (h *TourHandler) Distances(c *fiber.Ctx) error {
	distances, err := h.tours.Distances(c.UserContext(), c.Params("latlng"), c.Params("unit"))
	if err != nil {
		return err
	}
	return sendList(c, distances, len(distances))
}

// UploadTourImages stores the multipart imageCover and images of tour :id
func (h *TourHandler) UploadTourImages(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please upload the images as multipart/form-data.")
	}

	var cover *multipart.FileHeader
	if files := form.File["imageCover"]; len(files) > 0 {
		cover = files[0]
	}
	tour, err := h.images.UploadTourImages(c.UserContext(), id, cover, form.File["images"])
	if err != nil {
		return notFound(err)
	}
	return sendDoc(c, fiber.StatusOK, tour, models.TourHiddenFields)
}

// TourImage serves an uploaded image. It redirects to the public base URL
// when one is configured, and to a presigned object store link otherwise;
// the in-memory store serves the bytes itself.
func (h *TourHandler) TourImage(c *fiber.Ctx) error {
	name := c.Params("name")
	if mem, ok := h.images.Store().(*storage.MemoryImageStore); ok && !h.images.HasPublicURL() {
		data, found := mem.Get(name)
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "Image not found")
		}
		c.Set(fiber.HeaderContentType, "image/"+imageSubtype(name))
		return c.Send(data)
	}

	url, err := h.images.URL(c.UserContext(), name)
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

func imageSubtype(name string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."); ext {
	case "", "jpg":
		return "jpeg"
	default:
		return ext
	}
}
