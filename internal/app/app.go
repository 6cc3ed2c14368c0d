// Package app composes the services and the HTTP server over a storage
// backend.
package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/middleware"
	"github.com/arzan03/natours/internal/routes"
	"github.com/arzan03/natours/internal/services"
	"github.com/arzan03/natours/internal/storage"
	"github.com/arzan03/natours/internal/utils"
)

// Options configure New. Only Config and Backend are required.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend *storage.Backend

	Images         storage.ImageStore
	Mailer         services.Mailer
	LimiterStorage fiber.Storage
	Registry       *prometheus.Registry
}

// App is a ready-to-listen API server.
type App struct {
	Fiber *fiber.App

	Auth    *services.AuthService
	Tours   *services.TourService
	Reviews *services.ReviewService
	Users   *services.UserService
	Ratings *services.RatingsUpdater

	pool *utils.WorkerPool
}

func New(opts Options) *App {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	images := opts.Images
	if images == nil {
		images = storage.NewMemoryImageStore()
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = services.NewLogMailer(logger)
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	b := opts.Backend
	pool := utils.NewWorkerPool(cfg.Server.RatingWorkers, logger)
	ratings := services.NewRatingsUpdater(b.Ratings, b.Tours, pool, logger)
	reviews := services.NewReviewService(services.NewReviewRepository(b.Reviews, ratings), b.Tours, b.Users)

	a := &App{
		Auth:    services.NewAuthService(b.Users, services.NewTokenService(cfg.JWT), mailer, cfg.JWT.ResetTokenTTL, logger),
		Tours:   services.NewTourService(b.Tours, b.Users, reviews, b.Analytics),
		Reviews: reviews,
		Users:   services.NewUserService(b.Users),
		Ratings: ratings,
		pool:    pool,
	}

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "natours",
		ErrorHandler: middleware.ErrorHandler(!cfg.IsProduction(), logger),
		BodyLimit:    cfg.Server.UploadLimit,
	})
	routes.Setup(a.Fiber, routes.Deps{
		Config:         cfg,
		Logger:         logger,
		Metrics:        middleware.NewMetrics(registry, "natours"),
		LimiterStorage: opts.LimiterStorage,
		Auth:           a.Auth,
		Tours:          a.Tours,
		Reviews:        a.Reviews,
		Users:          a.Users,
		Images:         services.NewImageService(images, b.Tours).WithPublicURL(cfg.Minio.PublicURL),
	})
	return a
}

// Shutdown stops the server and drains pending rating updates.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Fiber.ShutdownWithContext(ctx)
	a.pool.Close()
	return err
}
