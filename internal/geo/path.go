package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/seatrace/trackdash/pkg/core"
)

// LineString builds a lon/lat line string (x=longitude, y=latitude).
func LineString(points []core.Point) geom.LineString {
	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.Longitude, p.Latitude)
	}
	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// ProjectedLineString builds the same path in Web Mercator metres.
func ProjectedLineString(points []core.Point) geom.LineString {
	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		x, y := Project3857(p.Longitude, p.Latitude)
		flatCoords = append(flatCoords, x, y)
	}
	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// PathLength returns the planar length of the path in Web Mercator metres.
// Mercator stretches distances away from the equator; good enough for display.
func PathLength(points []core.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	return ProjectedLineString(points).Length()
}

// XYs flattens a line string into [x, y] pairs for chart series.
func XYs(ls geom.LineString) [][2]float64 {
	seq := ls.Coordinates()
	out := make([][2]float64, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		out[i] = [2]float64{xy.X, xy.Y}
	}
	return out
}

// SamplePoints converts track samples into points.
func SamplePoints(samples []core.PositionSample) []core.Point {
	points := make([]core.Point, len(samples))
	for i, s := range samples {
		points[i] = s.Point()
	}
	return points
}
