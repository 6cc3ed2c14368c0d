// Package routes mounts the HTTP API on a fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/handlers"
	"github.com/arzan03/natours/internal/middleware"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
)

// Deps are the services the routes dispatch to.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *middleware.Metrics
	// LimiterStorage keeps rate-limit counters; nil keeps them in memory.
	LimiterStorage fiber.Storage

	Auth    *services.AuthService
	Tours   *services.TourService
	Reviews *services.ReviewService
	Users   *services.UserService
	Images  *services.ImageService
}

// Setup registers the middleware chain and every route on app.
func Setup(app *fiber.App, d Deps) {
	cfg := d.Config

	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		app.Use(d.Metrics.Handler())
	}
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.CORS())
	app.Use("/api", middleware.RateLimiter(cfg.RateLimit, d.LimiterStorage))
	app.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	app.Use(middleware.Sanitize())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "success"})
	})
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Endpoint())
	}

	protect := middleware.Protect(d.Auth)
	tourHandler := handlers.NewTourHandler(d.Tours, d.Images)
	reviewHandler := handlers.NewReviewHandler(d.Reviews)

	app.Get("/img/tours/:name", tourHandler.TourImage)

	v1 := app.Group("/api/v1")

	tours := v1.Group("/tours")
	reviewRoutes(tours.Group("/:tourId/reviews"), reviewHandler, protect)
	tourRoutes(tours, tourHandler, protect)

	reviewRoutes(v1.Group("/reviews"), reviewHandler, protect)

	userRoutes(v1.Group("/users"),
		handlers.NewAuthHandler(d.Auth, cfg.JWT.CookieExpires, cfg.IsProduction()),
		handlers.NewUserHandler(d.Users),
		protect,
	)

	if cfg.Server.PublicDir != "" {
		app.Static("/", cfg.Server.PublicDir)
	}
	app.Use(middleware.NotFound)
}

func tourRoutes(r fiber.Router, h *handlers.TourHandler, protect fiber.Handler) {
	editors := middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide)

	r.Get("/top-5-cheap", handlers.AliasTopTours, h.GetAllTours)
	r.Get("/tour-stats", h.TourStats)
	r.Get("/monthly-plan/:year", protect,
		middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide),
		h.MonthlyPlan)
	r.Get("/tours-within/:distance/center/:latlng/unit/:unit", h.ToursWithin)
	r.Get("/distances/:latlng/unit/:unit", h.Distances)

	r.Get("/", h.GetAllTours)
	r.Post("/", protect, editors, h.CreateTour)
	r.Get("/:id", h.GetTour)
	r.Patch("/:id", protect, editors, h.UpdateTour)
	r.Delete("/:id", protect, editors, h.DeleteTour)
	r.Patch("/:id/images", protect, editors, h.UploadTourImages)
}

// reviewRoutes serves both /reviews and /tours/:tourId/reviews.
func reviewRoutes(r fiber.Router, h *handlers.ReviewHandler, protect fiber.Handler) {
	writers := middleware.RestrictTo(models.RoleUser, models.RoleAdmin)

	r.Get("/", protect, h.GetAllReviews)
	r.Post("/", protect, middleware.RestrictTo(models.RoleUser), h.CreateReview)
	r.Get("/:id", protect, h.GetReview)
	r.Patch("/:id", protect, writers, h.UpdateReview)
	r.Delete("/:id", protect, writers, h.DeleteReview)
}

func userRoutes(r fiber.Router, auth *handlers.AuthHandler, users *handlers.UserHandler, protect fiber.Handler) {
	r.Post("/signup", auth.Signup)
	r.Post("/login", auth.Login)
	r.Get("/logout", auth.Logout)
	r.Post("/forgotPassword", auth.ForgotPassword)
	r.Patch("/resetPassword/:token", auth.ResetPassword)

	r.Patch("/updateMyPassword", protect, auth.UpdateMyPassword)
	r.Get("/me", protect, users.GetMe)
	r.Patch("/updateMe", protect, users.UpdateMe)
	r.Delete("/deleteMe", protect, users.DeleteMe)

	admin := middleware.RestrictTo(models.RoleAdmin)
	r.Get("/", protect, admin, users.GetAllUsers)
	r.Post("/", protect, admin, users.CreateUser)
	r.Get("/:id", protect, admin, users.GetUser)
	r.Patch("/:id", protect, admin, users.UpdateUser)
	r.Delete("/:id", protect, admin, users.DeleteUser)
}
