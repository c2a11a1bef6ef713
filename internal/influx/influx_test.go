package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace/trackdash/internal/attribute"
	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

var at = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.Valid())
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1))
	assert.Error(t, err)
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gzip")
	m := NewManager(config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "trackdash",
		Bucket:     "playback",
		BackupPath: backup,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.Valid())

	frame := playback.Frame{Tick: 4, Speed: 10, Mode: playback.ModeDrift, Deviated: true,
		Overlays: []playback.Overlay{{VesselID: "219000001", CurrentPath: make([]core.Point, 3)}}}
	require.NoError(t, m.WriteFrame("abc", frame, at))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(bytes.TrimSpace(body))
	assert.Contains(t, line, "playback,mode=drift,session=abc ")
	assert.Contains(t, line, "deviated=true")
	assert.Contains(t, line, "path_points=3i")
	assert.Contains(t, line, "tick=4i")
}

func TestFramePoint(t *testing.T) {
	p := FramePoint("s1", playback.Frame{Tick: 2, Speed: 5}, at)

	assert.Equal(t, MeasurementPlayback, p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"session": "s1", "mode": "normal"}, tags)
	assert.Equal(t, at, p.Time())
}

func TestCrossFilterPoint(t *testing.T) {
	res := crossfilter.Result{
		Selection:       core.Selection{ShipType: core.Some("Cargo")},
		ShipTypeCounts:  []attribute.CategoryCount{{Label: "Cargo", Count: 20}},
		NavStatusCounts: []attribute.CategoryCount{{Label: "Underway", Count: 12}, {Label: "Moored", Count: 8}},
	}
	line := influxdb2_write.PointToLineProtocol(CrossFilterPoint(res, at), time.Nanosecond)

	assert.Contains(t, line, "crossfilter,ship_type=Cargo ")
	assert.Contains(t, line, "rows=20i")
	assert.Contains(t, line, "nav_statuses=2i")
	assert.Contains(t, line, "selection_active=true")
}
