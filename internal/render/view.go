package render

import (
	"github.com/seatrace/trackdash/internal/attribute"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/geo"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

// PointView is a JSON point.
type PointView struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Time      string  `json:"time"`
}

// OverlayView is the JSON form of one vessel overlay.
type OverlayView struct {
	VesselID    string      `json:"vesselId"`
	FullPath    []PointView `json:"fullPath"`
	CurrentPath []PointView `json:"currentPath"`
	Start       PointView   `json:"start"`
	End         PointView   `json:"end"`
	Live        *PointView  `json:"live,omitempty"`
	LiveText    string      `json:"liveText,omitempty"`
	Drifted     bool        `json:"drifted"`
	// TrackLength is the full path length in Web Mercator metres.
	TrackLength float64 `json:"trackLength"`
}

// FrameView is the JSON form of a playback frame.
type FrameView struct {
	Tick      int           `json:"tick"`
	Speed     int           `json:"speed"`
	Mode      string        `json:"mode"`
	Overlays  []OverlayView `json:"overlays"`
	TimeLabel string        `json:"timeLabel"`
	Warning   string        `json:"warning"`
	Indicator string        `json:"indicator"`
	Deviated  bool          `json:"deviated"`
}

// CrossFilterView is the JSON form of a cross-filter result.
type CrossFilterView struct {
	ShipType  []attribute.CategoryCount `json:"shipType"`
	NavStatus []attribute.CategoryCount `json:"navStatus"`
	Selection string                    `json:"selection"`
}

func pointView(p core.Point) PointView {
	return PointView{Latitude: p.Latitude, Longitude: p.Longitude, Time: p.Time.Format(playback.TimeLayout)}
}

func pointViews(points []core.Point) []PointView {
	out := make([]PointView, len(points))
	for i, p := range points {
		out[i] = pointView(p)
	}
	return out
}

// NewFrameView converts a frame for JSON output.
func NewFrameView(frame playback.Frame) FrameView {
	v := FrameView{
		Tick:      frame.Tick,
		Speed:     frame.Speed,
		Mode:      frame.Mode.String(),
		Overlays:  make([]OverlayView, 0, len(frame.Overlays)),
		TimeLabel: frame.TimeLabel,
		Warning:   frame.Warning,
		Indicator: string(frame.Indicator),
		Deviated:  frame.Deviated,
	}
	if v.Indicator == "" {
		v.Indicator = string(playback.Green)
	}
	for _, ov := range frame.Overlays {
		ovv := OverlayView{
			VesselID:    string(ov.VesselID),
			FullPath:    pointViews(ov.FullPath),
			CurrentPath: pointViews(ov.CurrentPath),
			Start:       pointView(ov.Start),
			End:         pointView(ov.End),
			LiveText:    ov.LiveText,
			Drifted:     ov.Drifted,
			TrackLength: geo.PathLength(ov.FullPath),
		}
		if ov.Live != nil {
			live := pointView(*ov.Live)
			ovv.Live = &live
		}
		v.Overlays = append(v.Overlays, ovv)
	}
	return v
}

// NewCrossFilterView converts a cross-filter result for JSON output.
func NewCrossFilterView(res crossfilter.Result) CrossFilterView {
	return CrossFilterView{
		ShipType:  nonNil(res.ShipTypeCounts),
		NavStatus: nonNil(res.NavStatusCounts),
		Selection: res.Encoded,
	}
}

func nonNil(counts []attribute.CategoryCount) []attribute.CategoryCount {
	if counts == nil {
		return []attribute.CategoryCount{}
	}
	return counts
}
