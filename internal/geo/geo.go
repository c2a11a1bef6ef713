package geo

import (
	"errors"
	"fmt"

	"github.com/wroge/wgs84"

	"github.com/seatrace/trackdash/pkg/core"
)

// Coordinates arrive as WGS84 lat/lon (EPSG:4326). Anything drawn on the track
// chart is projected to Web Mercator (EPSG:3857) so the x and y axes share a
// unit and the path keeps its shape.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ValidateLatLon reports ErrInvalidCoordinates for values outside WGS84 bounds.
func ValidateLatLon(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, latitude)
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, longitude)
	}
	return nil
}

// Project3857 converts a longitude/latitude pair to Web Mercator metres.
func Project3857(longitude, latitude float64) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	return x, y
}

// Offset moves a point by step degrees along both axes.
// Flat approximation used for synthetic drift, not a navigation model.
func Offset(p core.Point, step float64) core.Point {
	return core.Point{
		Latitude:  p.Latitude + step,
		Longitude: p.Longitude + step,
		Time:      p.Time,
	}
}
