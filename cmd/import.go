package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/seed"
	"github.com/arzan03/natours/internal/services"
	"github.com/arzan03/natours/internal/utils"
)

var (
	importDir  string
	deleteOnly bool
)

var importCmd = &cobra.Command{
	Use:   "import-data",
	Short: "Load the dev-data JSON files into the database, or wipe it with --delete",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx := context.Background()
		backend, closeBackend, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeBackend()

		if deleteOnly {
			return seed.Delete(ctx, backend, logger)
		}

		pool := utils.NewWorkerPool(1, logger)
		defer pool.Close()
		ratings := services.NewRatingsUpdater(backend.Ratings, backend.Tours, pool, logger)

		_, err = seed.Import(ctx, importDir, backend, ratings, logger)
		if err != nil {
			logger.Error("import failed", zap.Error(err))
		}
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "dev-data", "directory holding tours.json, users.json and reviews.json")
	importCmd.Flags().BoolVar(&deleteOnly, "delete", false, "delete all tours, users and reviews instead of importing")
}
