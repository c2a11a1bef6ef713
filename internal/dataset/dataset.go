// Package dataset reads the movement and attribute CSV files.
// Any malformed row is fatal: callers abort startup on error.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/seatrace/trackdash/internal/geo"
	"github.com/seatrace/trackdash/internal/util"
	"github.com/seatrace/trackdash/pkg/core"
	"github.com/spf13/cast"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrParse is returned when a cell cannot be parsed.
	ErrParse = errors.New("parse error")
)

// MovementColumns names the headers of the movement file.
type MovementColumns struct {
	VesselID  string `mapstructure:"vesselId"`
	Timestamp string `mapstructure:"timestamp"`
	Latitude  string `mapstructure:"latitude"`
	Longitude string `mapstructure:"longitude"`
}

// AttributeColumns names the headers of the attribute file.
type AttributeColumns struct {
	VesselID  string `mapstructure:"vesselId"`
	ShipType  string `mapstructure:"shipType"`
	NavStatus string `mapstructure:"navStatus"`
}

// DefaultMovementColumns matches the AIS export the dashboard was built for.
var DefaultMovementColumns = MovementColumns{
	VesselID:  "MMSI",
	Timestamp: "Timestamp",
	Latitude:  "Latitude",
	Longitude: "Longitude",
}

// DefaultAttributeColumns matches the vessel register export.
var DefaultAttributeColumns = AttributeColumns{
	VesselID:  "MMSI",
	ShipType:  "Ship type",
	NavStatus: "Navigational status",
}

// ReadMovement parses position samples. Timestamps without a zone are UTC.
func ReadMovement(r io.Reader, cols MovementColumns) ([]core.PositionSample, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading movement header: %w", err)
	}
	util.ToUTF8Record(header)

	idx, err := requireColumns(util.IndexHeaders(header),
		cols.VesselID, cols.Timestamp, cols.Latitude, cols.Longitude)
	if err != nil {
		return nil, err
	}

	var samples []core.PositionSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("movement line %d: %w", line, err)
		}
		util.ToUTF8Record(rec)

		id := strings.TrimSpace(rec[idx[0]])
		if id == "" {
			return nil, fmt.Errorf("movement line %d: %w: empty %s", line, ErrParse, cols.VesselID)
		}
		ts, err := ParseTimestamp(rec[idx[1]])
		if err != nil {
			return nil, fmt.Errorf("movement line %d: %w", line, err)
		}
		lat, err := parseFloat(cols.Latitude, rec[idx[2]])
		if err != nil {
			return nil, fmt.Errorf("movement line %d: %w", line, err)
		}
		lon, err := parseFloat(cols.Longitude, rec[idx[3]])
		if err != nil {
			return nil, fmt.Errorf("movement line %d: %w", line, err)
		}
		if err := geo.ValidateLatLon(lat, lon); err != nil {
			return nil, fmt.Errorf("movement line %d: %w", line, err)
		}

		samples = append(samples, core.PositionSample{
			VesselID:  core.VesselID(id),
			Timestamp: ts,
			Latitude:  lat,
			Longitude: lon,
		})
	}

	return samples, nil
}

// ReadAttributes parses attribute records. Columns other than the three
// named ones land in Extra, keyed by their trimmed header.
func ReadAttributes(r io.Reader, cols AttributeColumns) ([]core.AttributeRecord, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading attribute header: %w", err)
	}
	util.ToUTF8Record(header)

	headers := util.IndexHeaders(header)
	idx, err := requireColumns(headers, cols.ShipType, cols.NavStatus)
	if err != nil {
		return nil, err
	}
	idIdx, hasID := headers[util.NormalizeHeader(cols.VesselID)]

	known := map[int]bool{idx[0]: true, idx[1]: true}
	if hasID {
		known[idIdx] = true
	}

	var records []core.AttributeRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("attribute line %d: %w", line, err)
		}
		util.ToUTF8Record(rec)

		ar := core.AttributeRecord{
			ShipType:  util.CleanLabel(rec[idx[0]]),
			NavStatus: util.CleanLabel(rec[idx[1]]),
		}
		if hasID {
			ar.VesselID = core.VesselID(strings.TrimSpace(rec[idIdx]))
		}
		for i, v := range rec {
			if known[i] || i >= len(header) {
				continue
			}
			if ar.Extra == nil {
				ar.Extra = make(map[string]string)
			}
			ar.Extra[strings.TrimSpace(util.TrimQuotes(header[i]))] = v
		}
		records = append(records, ar)
	}

	return records, nil
}

// LoadMovementFile opens and parses a movement CSV file.
func LoadMovementFile(path string, cols MovementColumns) ([]core.PositionSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open movement file: %w", err)
	}
	defer f.Close()
	return ReadMovement(f, cols)
}

// LoadAttributeFile opens and parses an attribute CSV file.
func LoadAttributeFile(path string, cols AttributeColumns) ([]core.AttributeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute file: %w", err)
	}
	defer f.Close()
	return ReadAttributes(f, cols)
}

// ParseTimestamp accepts the usual date-time layouts (ISO 8601, "2006-01-02 15:04:05", ...).
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrParse)
	}
	ts, err := now.ParseInLocation(time.UTC, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrParse, s)
	}
	return ts, nil
}

func parseFloat(column, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty %s", ErrParse, column)
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrParse, column, s)
	}
	return v, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return cr
}

func requireColumns(headers map[string]int, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := headers[util.NormalizeHeader(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		idx[i] = j
	}
	return idx, nil
}
