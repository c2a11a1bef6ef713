// Package sqlitestorage opens dataset stores on SQLite files.
package sqlitestorage

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/seatrace/trackdash/internal/database"
	gormstorage "github.com/seatrace/trackdash/internal/storage/gorm"
)

// Open returns a source reading the SQLite file at path, which must exist.
func Open(path string, log zerolog.Logger) (*gormstorage.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite dataset: %w", err)
	}
	db, err := database.GetSqliteDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	log.Info().Str("path", path).Msg("Using SQLite dataset")
	return gormstorage.New(db, log), nil
}

// Sink builds the dataset in memory and writes it to disk with VACUUM INTO
// when closed.
type Sink struct {
	*gormstorage.Store
	manager *database.Manager
	path    string
}

// NewSink creates an in-memory sink that is dumped to path on Close.
func NewSink(path string, log zerolog.Logger) (*Sink, error) {
	m := database.NewManager(log)
	if err := m.ConnectSQLite(database.MemoryPath); err != nil {
		return nil, err
	}
	if err := m.Setup(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return &Sink{
		Store:   gormstorage.New(m.DB, log),
		manager: m,
		path:    path,
	}, nil
}

// Close dumps the database to disk and closes it.
func (s *Sink) Close() error {
	dumpErr := s.manager.DumpMemoryToDisk(s.path)
	if err := s.manager.Close(); err != nil && dumpErr == nil {
		return err
	}
	return dumpErr
}
