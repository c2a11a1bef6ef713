// Package convert maps between GORM models and core types.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
	"gorm.io/datatypes"

	"github.com/seatrace/trackdash/internal/model"
	"github.com/seatrace/trackdash/pkg/core"
)

// CoreToPositionSample converts a sample; seq is its position in the dataset.
func CoreToPositionSample(s core.PositionSample, seq uint) model.PositionSample {
	return model.PositionSample{
		Seq:       seq,
		VesselID:  string(s.VesselID),
		Time:      s.Timestamp.UTC(),
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
}

// PositionSampleToCore converts a row back into a sample.
func PositionSampleToCore(m model.PositionSample) core.PositionSample {
	return core.PositionSample{
		VesselID:  core.VesselID(m.VesselID),
		Timestamp: m.Time.UTC(),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}
}

// extraToJSON encodes the extra columns; none is stored as an empty object.
func extraToJSON(extra map[string]string) datatypes.JSON {
	if len(extra) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(extra)
	return datatypes.JSON(data)
}

// CoreToVesselAttribute converts an attribute record.
func CoreToVesselAttribute(r core.AttributeRecord, seq uint) model.VesselAttribute {
	return model.VesselAttribute{
		Seq:       seq,
		VesselID:  string(r.VesselID),
		ShipType:  r.ShipType,
		NavStatus: r.NavStatus,
		Extra:     extraToJSON(r.Extra),
	}
}

// VesselAttributeToCore converts a row back into a record. Extra values
// written by other tools may be numbers or booleans; they are coerced to text.
func VesselAttributeToCore(m model.VesselAttribute) (core.AttributeRecord, error) {
	r := core.AttributeRecord{
		VesselID:  core.VesselID(m.VesselID),
		ShipType:  m.ShipType,
		NavStatus: m.NavStatus,
	}
	if len(m.Extra) == 0 {
		return r, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(m.Extra, &raw); err != nil {
		return r, fmt.Errorf("vessel attribute %d extra: %w", m.ID, err)
	}
	if len(raw) == 0 {
		return r, nil
	}
	r.Extra = make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			r.Extra[k] = ""
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return r, fmt.Errorf("vessel attribute %d extra %q: %w", m.ID, k, err)
		}
		r.Extra[k] = s
	}
	return r, nil
}
