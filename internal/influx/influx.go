// Package influx records playback telemetry in InfluxDB, falling back to a
// gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/playback"
)

// Measurements written by the manager.
const (
	MeasurementPlayback    = "playback"
	MeasurementCrossFilter = "crossfilter"
)

// ErrDisabled is returned by Connect when InfluxDB is turned off.
var ErrDisabled = errors.New("influx disabled")

// retention of the telemetry bucket
const retentionSeconds = 60 * 60 * 24 * 30

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	logger zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
}

// NewManager creates a manager; call Connect before writing.
func NewManager(cfg config.InfluxConfig, logger zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Connect pings the server and prepares the bucket writer, or opens the
// backup file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.ensureBucket(ctx); err != nil {
		return err
	}

	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errs <-chan error) {
		for writeErr := range errs {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())

	m.mu.Lock()
	m.valid = true
	m.mu.Unlock()
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// Valid reports whether points go to a live server.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteFrame records one playback frame.
func (m *Manager) WriteFrame(sessionID string, frame playback.Frame, at time.Time) error {
	return m.WritePoint(FramePoint(sessionID, frame, at))
}

// WriteCrossFilter records one cross-filter update.
func (m *Manager) WriteCrossFilter(res crossfilter.Result, at time.Time) error {
	return m.WritePoint(CrossFilterPoint(res, at))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	var err error
	if m.backup != nil {
		err = errors.Join(m.backup.Close(), m.backupFile.Close())
		m.backup = nil
	}
	m.valid = false
	return err
}

// FramePoint converts a frame into a point of the playback measurement.
func FramePoint(sessionID string, frame playback.Frame, at time.Time) *influxdb2_write.Point {
	points := 0
	for _, ov := range frame.Overlays {
		points += len(ov.CurrentPath)
	}
	return influxdb2.NewPoint(MeasurementPlayback,
		map[string]string{
			"session": sessionID,
			"mode":    frame.Mode.String(),
		},
		map[string]interface{}{
			"tick":         frame.Tick,
			"speed":        frame.Speed,
			"vessels":      len(frame.Overlays),
			"path_points":  points,
			"deviated":     frame.Deviated,
			"simulated_ts": frame.CurrentTime.Unix(),
		},
		at,
	)
}

// CrossFilterPoint converts a cross-filter result into a point.
func CrossFilterPoint(res crossfilter.Result, at time.Time) *influxdb2_write.Point {
	tags := map[string]string{}
	if res.Selection.ShipType.Set {
		tags["ship_type"] = res.Selection.ShipType.Value
	}
	if res.Selection.NavStatus.Set {
		tags["nav_status"] = res.Selection.NavStatus.Value
	}
	rows := 0
	for _, c := range res.ShipTypeCounts {
		rows += c.Count
	}
	return influxdb2.NewPoint(MeasurementCrossFilter,
		tags,
		map[string]interface{}{
			"rows":             rows,
			"ship_types":       len(res.ShipTypeCounts),
			"nav_statuses":     len(res.NavStatusCounts),
			"selection_active": !res.Selection.Empty(),
		},
		at,
	)
}
