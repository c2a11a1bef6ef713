// Package postgres opens dataset stores on a Postgres database.
package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/database"
	gormstorage "github.com/seatrace/trackdash/internal/storage/gorm"
)

// Open connects to cfg and returns a store usable as source.
func Open(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*gormstorage.Store, error) {
	m := database.NewManager(log)
	if err := m.ConnectPostgres(ctx, cfg); err != nil {
		return nil, err
	}
	return gormstorage.New(m.DB, log), nil
}

// OpenSink connects to cfg and migrates the dataset tables before import.
func OpenSink(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*gormstorage.Store, error) {
	m := database.NewManager(log)
	if err := m.ConnectPostgres(ctx, cfg); err != nil {
		return nil, err
	}
	if err := m.Setup(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return gormstorage.New(m.DB, log), nil
}
