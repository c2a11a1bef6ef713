// Package gormstorage implements storage.Source and storage.Sink over any
// gorm connection. The sqlite and postgres packages only open the DB.
package gormstorage

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatrace/trackdash/internal/database"
	"github.com/seatrace/trackdash/internal/model"
	"github.com/seatrace/trackdash/internal/model/convert"
	"github.com/seatrace/trackdash/pkg/core"
)

// DefaultBatchSize is the rows per INSERT and per read batch.
const DefaultBatchSize = 2000

// Store reads and writes the dataset tables.
type Store struct {
	db        *gorm.DB
	log       zerolog.Logger
	batchSize int
}

// New wraps an open connection.
func New(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log, batchSize: DefaultBatchSize}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates the dataset tables.
func (s *Store) Migrate() error {
	return database.Migrate(s.db)
}

// LoadMovement reads every position sample in dataset order. Batches walk
// the primary key; rows written by other tools may not follow Seq, so the
// result is re-sorted on it.
func (s *Store) LoadMovement(ctx context.Context) ([]core.PositionSample, error) {
	var rows []model.PositionSample
	var batch []model.PositionSample
	res := s.db.WithContext(ctx).
		FindInBatches(&batch, s.batchSize, func(tx *gorm.DB, n int) error {
			rows = append(rows, batch...)
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("read position samples: %w", res.Error)
	}

	slices.SortStableFunc(rows, func(a, b model.PositionSample) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	out := make([]core.PositionSample, len(rows))
	for i, row := range rows {
		out[i] = convert.PositionSampleToCore(row)
	}
	s.log.Debug().Int("rows", len(out)).Msg("Read position samples")
	return out, nil
}

// LoadAttributes reads every attribute record in dataset order.
func (s *Store) LoadAttributes(ctx context.Context) ([]core.AttributeRecord, error) {
	var rows []model.VesselAttribute
	var batch []model.VesselAttribute
	res := s.db.WithContext(ctx).
		FindInBatches(&batch, s.batchSize, func(tx *gorm.DB, n int) error {
			rows = append(rows, batch...)
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("read vessel attributes: %w", res.Error)
	}

	slices.SortStableFunc(rows, func(a, b model.VesselAttribute) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	out := make([]core.AttributeRecord, len(rows))
	for i, row := range rows {
		r, err := convert.VesselAttributeToCore(row)
		if err != nil {
			return nil, fmt.Errorf("read vessel attributes: %w", err)
		}
		out[i] = r
	}
	s.log.Debug().Int("rows", len(out)).Msg("Read vessel attributes")
	return out, nil
}

// SaveMovement replaces the stored samples.
func (s *Store) SaveMovement(ctx context.Context, samples []core.PositionSample) error {
	rows := make([]model.PositionSample, len(samples))
	for i, sample := range samples {
		rows[i] = convert.CoreToPositionSample(sample, uint(i))
	}
	return s.replace(ctx, &model.PositionSample{}, &rows, len(rows))
}

// SaveAttributes replaces the stored attribute records.
func (s *Store) SaveAttributes(ctx context.Context, records []core.AttributeRecord) error {
	rows := make([]model.VesselAttribute, len(records))
	for i, r := range records {
		rows[i] = convert.CoreToVesselAttribute(r, uint(i))
	}
	return s.replace(ctx, &model.VesselAttribute{}, &rows, len(rows))
}

func (s *Store) replace(ctx context.Context, table, rows any, n int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return fmt.Errorf("clear table: %w", err)
		}
		if n == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, s.batchSize).Error; err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
}

// Close closes the connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
