package main

import (
	"context"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/storage"
)

// loadDatasets reads both datasets from the configured source. Any error is
// fatal to startup.
func loadDatasets(ctx context.Context) (storage.Datasets, error) {
	dataCfg := config.GetDataConfig()
	src, err := storage.NewSource(ctx, dataCfg, config.GetStorageConfig(), ZeroLogger)
	if err != nil {
		return storage.Datasets{}, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			Logger.Warn("Failed to close dataset source", "error", err)
		}
	}()

	Logger.Info("Loading datasets", "source", dataCfg.Source)
	return storage.Load(ctx, src, ZeroLogger)
}
