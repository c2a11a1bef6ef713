// Package memory implements storage.Source over the CSV files, held in
// memory once read.
package memory

import (
	"context"
	"sync"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/dataset"
	"github.com/seatrace/trackdash/pkg/core"
)

// Source reads each CSV file on first use and keeps the rows.
type Source struct {
	movementPath  string
	attributePath string
	movementCols  dataset.MovementColumns
	attributeCols dataset.AttributeColumns

	mu         sync.Mutex
	samples    []core.PositionSample
	records    []core.AttributeRecord
	hasSamples bool
	hasRecords bool
}

// New creates a source for the CSV paths in cfg. Empty column names fall
// back to the defaults.
func New(cfg config.DataConfig) *Source {
	return &Source{
		movementPath:  cfg.MovementPath,
		attributePath: cfg.AttributePath,
		movementCols:  MovementColumns(cfg.MovementColumns),
		attributeCols: AttributeColumns(cfg.AttributeColumns),
	}
}

// FromRecords creates a source that serves the given rows.
func FromRecords(samples []core.PositionSample, records []core.AttributeRecord) *Source {
	return &Source{
		samples:    samples,
		records:    records,
		hasSamples: true,
		hasRecords: true,
	}
}

// MovementColumns maps configured column names, keeping defaults for blanks.
func MovementColumns(c config.ColumnConfig) dataset.MovementColumns {
	cols := dataset.DefaultMovementColumns
	setIf(&cols.VesselID, c.VesselID)
	setIf(&cols.Timestamp, c.Timestamp)
	setIf(&cols.Latitude, c.Latitude)
	setIf(&cols.Longitude, c.Longitude)
	return cols
}

// AttributeColumns maps configured column names, keeping defaults for blanks.
func AttributeColumns(c config.ColumnConfig) dataset.AttributeColumns {
	cols := dataset.DefaultAttributeColumns
	setIf(&cols.VesselID, c.VesselID)
	setIf(&cols.ShipType, c.ShipType)
	setIf(&cols.NavStatus, c.NavStatus)
	return cols
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadMovement returns the movement rows.
func (s *Source) LoadMovement(ctx context.Context) ([]core.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSamples {
		samples, err := dataset.LoadMovementFile(s.movementPath, s.movementCols)
		if err != nil {
			return nil, err
		}
		s.samples = samples
		s.hasSamples = true
	}
	return s.samples, nil
}

// LoadAttributes returns the attribute rows.
func (s *Source) LoadAttributes(ctx context.Context) ([]core.AttributeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRecords {
		records, err := dataset.LoadAttributeFile(s.attributePath, s.attributeCols)
		if err != nil {
			return nil, err
		}
		s.records = records
		s.hasRecords = true
	}
	return s.records, nil
}

// Close drops rows read from disk.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.movementPath != "" {
		s.samples, s.hasSamples = nil, false
	}
	if s.attributePath != "" {
		s.records, s.hasRecords = nil, false
	}
	return nil
}
