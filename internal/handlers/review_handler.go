package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/middleware"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
)

// ReviewHandler serves /api/v1/reviews and /api/v1/tours/:tourId/reviews
type ReviewHandler struct {
	resource *Resource[models.Review]
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		resource: &Resource[models.Review]{
			Repo: reviews.Repository(),
			Build: func(c *fiber.Ctx) (*models.Review, error) {
				var in models.ReviewInput
				if err := parseBody(c, &in); err != nil {
					return nil, err
				}
				return reviews.NewReview(c.UserContext(), in, c.Params("tourId"), middleware.CurrentUser(c))
			},
			Patch: func(c *fiber.Ctx, r *models.Review) error {
				var patch models.ReviewPatch
				if err := parseBody(c, &patch); err != nil {
					return err
				}
				return patch.Apply(r)
			},
			Authorize: ownReviewOrAdmin,
			Scope: func(c *fiber.Ctx) (bson.M, error) {
				tourID := c.Params("tourId")
				if tourID == "" {
					return nil, nil
				}
				id, err := models.ParseID("tour", tourID)
				if err != nil {
					return nil, err
				}
				return bson.M{"tour": id}, nil
			},
			ExpandOne: func(c *fiber.Ctx, r *models.Review) (any, error) {
				views, err := reviews.Expand(c.UserContext(), []models.Review{*r}, withTour(c))
				if err != nil {
					return nil, err
				}
				return views[0], nil
			},
			ExpandMany: func(c *fiber.Ctx, rs []models.Review) (any, error) {
				return reviews.Expand(c.UserContext(), rs, withTour(c))
			},
			StringFields: []string{"review"},
		},
	}
}

func (h *ReviewHandler) GetAllReviews(c *fiber.Ctx) error { return h.resource.GetAll(c) }
func (h *ReviewHandler) GetReview(c *fiber.Ctx) error     { return h.resource.GetOne(c) }
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error  { return h.resource.CreateOne(c) }
func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error  { return h.resource.UpdateOne(c) }
func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error  { return h.resource.DeleteOne(c) }

// withTour keeps the tour id on reviews unless they are listed under their tour.
func withTour(c *fiber.Ctx) bool {
	return c.Params("tourId") == ""
}

// ownReviewOrAdmin lets users change only their own reviews.
func ownReviewOrAdmin(c *fiber.Ctx, r *models.Review) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperror.Unauthorized("You are not logged in! Please log in to get access.")
	}
	if user.Role != models.RoleAdmin && user.ID != r.User {
		return apperror.Forbidden("You can only change your own reviews.")
	}
	return nil
}
