package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/seatrace/trackdash/internal/config"
	gormstorage "github.com/seatrace/trackdash/internal/storage/gorm"
	"github.com/seatrace/trackdash/internal/storage/memory"
	"github.com/seatrace/trackdash/internal/storage/postgres"
	sqlitestorage "github.com/seatrace/trackdash/internal/storage/sqlite"
)

// Data source names accepted in data.source.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

var (
	_ Source = (*memory.Source)(nil)
	_ Source = (*gormstorage.Store)(nil)
	_ Sink   = (*gormstorage.Store)(nil)
	_ Sink   = (*sqlitestorage.Sink)(nil)
)

// NewSource creates the dataset source named by data.Source.
func NewSource(ctx context.Context, data config.DataConfig, st config.StorageConfig, log zerolog.Logger) (Source, error) {
	switch data.Source {
	case SourceCSV:
		return memory.New(data), nil
	case SourceSQLite:
		src, err := sqlitestorage.Open(st.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case SourcePostgres:
		src, err := postgres.Open(ctx, st.Postgres, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", data.Source)
	}
}

// NewSink creates an import target; only database targets are accepted.
func NewSink(ctx context.Context, target string, st config.StorageConfig, log zerolog.Logger) (Sink, error) {
	switch target {
	case SourceSQLite:
		sink, err := sqlitestorage.NewSink(st.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case SourcePostgres:
		sink, err := postgres.OpenSink(ctx, st.Postgres, log)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown import target: %s", target)
	}
}
