// pkg/core/vessel.go
package core

import "time"

// VesselID identifies a vessel across both datasets (MMSI in AIS data).
// Kept as text so leading zeros survive a round trip.
type VesselID string

// PositionSample is one recorded fix of a vessel.
type PositionSample struct {
	VesselID  VesselID
	Timestamp time.Time
	Latitude  float64
	Longitude float64
}

// Point is a bare lat/lon pair with the time it applies to.
// Synthetic drift points are Points that never belong to a track.
type Point struct {
	Latitude  float64
	Longitude float64
	Time      time.Time
}

// Point returns the sample as a Point.
func (s PositionSample) Point() Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude, Time: s.Timestamp}
}

// AttributeRecord holds the categorical attributes of one vessel record.
// Extra carries the remaining descriptive columns verbatim.
type AttributeRecord struct {
	VesselID  VesselID
	ShipType  string
	NavStatus string
	Extra     map[string]string
}
