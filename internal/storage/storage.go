// Package storage loads the movement and attribute datasets from a
// configured source and builds the read-only structures the engines use.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatrace/trackdash/internal/attribute"
	"github.com/seatrace/trackdash/internal/track"
	"github.com/seatrace/trackdash/pkg/core"
)

// ErrNoSamples is returned by Load when the movement dataset is empty.
var ErrNoSamples = errors.New("movement dataset has no samples")

// Source is the interface all dataset sources must satisfy.
type Source interface {
	LoadMovement(ctx context.Context) ([]core.PositionSample, error)
	LoadAttributes(ctx context.Context) ([]core.AttributeRecord, error)
	Close() error
}

// Sink receives datasets during an import. Saving replaces what the sink
// held before.
type Sink interface {
	SaveMovement(ctx context.Context, samples []core.PositionSample) error
	SaveAttributes(ctx context.Context, records []core.AttributeRecord) error
	Close() error
}

// Datasets is everything the host needs after loading.
type Datasets struct {
	Tracks     *track.Store
	Attributes *attribute.Table
}

// Load reads both datasets from src.
func Load(ctx context.Context, src Source, log zerolog.Logger) (Datasets, error) {
	start := time.Now()

	samples, err := src.LoadMovement(ctx)
	if err != nil {
		return Datasets{}, fmt.Errorf("load movement: %w", err)
	}
	if len(samples) == 0 {
		return Datasets{}, ErrNoSamples
	}
	records, err := src.LoadAttributes(ctx)
	if err != nil {
		return Datasets{}, fmt.Errorf("load attributes: %w", err)
	}

	ds := Datasets{
		Tracks:     track.NewStore(samples),
		Attributes: attribute.NewTable(records),
	}
	log.Info().
		Int("samples", len(samples)).
		Int("vessels", len(ds.Tracks.VesselIDs())).
		Int("attributes", ds.Attributes.Len()).
		Dur("duration", time.Since(start)).
		Msg("Datasets loaded")
	return ds, nil
}

// ImportStats counts the rows copied by Import.
type ImportStats struct {
	Samples    int `json:"samples"`
	Attributes int `json:"attributes"`
}

// Import copies both datasets from src into dst.
func Import(ctx context.Context, src Source, dst Sink, log zerolog.Logger) (ImportStats, error) {
	var stats ImportStats

	samples, err := src.LoadMovement(ctx)
	if err != nil {
		return stats, fmt.Errorf("load movement: %w", err)
	}
	if err := dst.SaveMovement(ctx, samples); err != nil {
		return stats, fmt.Errorf("save movement: %w", err)
	}
	stats.Samples = len(samples)

	records, err := src.LoadAttributes(ctx)
	if err != nil {
		return stats, fmt.Errorf("load attributes: %w", err)
	}
	if err := dst.SaveAttributes(ctx, records); err != nil {
		return stats, fmt.Errorf("save attributes: %w", err)
	}
	stats.Attributes = len(records)

	log.Info().Int("samples", stats.Samples).Int("attributes", stats.Attributes).Msg("Import complete")
	return stats, nil
}
