package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/db"
	"github.com/arzan03/natours/internal/logging"
	"github.com/arzan03/natours/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "natours",
	Short: "Natours tour booking API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg), nil
}

// openBackend connects the configured store. The returned func releases it.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.Backend, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using the in-memory store, data is lost on exit")
		return storage.NewMemoryBackend(), func() {}, nil
	}

	client, err := db.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		return nil, nil, err
	}
	database := client.Database(cfg.Mongo.Database)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from mongodb", zap.Error(err))
		}
	}
	return storage.NewMongoBackend(database), closeFn, nil
}
