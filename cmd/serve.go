package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/app"
	"github.com/arzan03/natours/internal/seed"
	"github.com/arzan03/natours/internal/services"
	"github.com/arzan03/natours/internal/storage"
)

var seedDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	// serve is also the root command's default action.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&seedDir, "seed", "", "import dev-data from this directory before serving")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeBackend()

	var images storage.ImageStore
	if cfg.IsMinioConfigured() {
		if images, err = storage.NewMinioImageStore(ctx, cfg.Minio, logger); err != nil {
			logger.Fatal("failed to initialize minio", zap.Error(err))
		}
	}

	var limiterStorage fiber.Storage
	if cfg.Redis.URL != "" {
		redisStorage, err := storage.NewRedisLimiterStorage(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStorage.Close()
		limiterStorage = redisStorage
	}

	server := app.New(app.Options{
		Config:         cfg,
		Logger:         logger,
		Backend:        backend,
		Images:         images,
		Mailer:         services.NewMailer(cfg, logger),
		LimiterStorage: limiterStorage,
	})

	if seedDir != "" {
		if _, err := seed.Import(ctx, seedDir, backend, server.Ratings, logger); err != nil {
			logger.Fatal("failed to seed data", zap.Error(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("app running", zap.String("port", cfg.Server.Port), zap.String("env", string(cfg.Env)))
		errCh <- server.Fiber.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		logger.Error("server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
