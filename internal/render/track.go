package render

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/seatrace/trackdash/internal/geo"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

const trackHeight = "640px"

// bounds is an axis-aligned box in Web Mercator metres.
type bounds struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func newBounds() bounds {
	return bounds{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
		empty: true,
	}
}

func (b *bounds) extend(x, y float64) {
	b.minX = math.Min(b.minX, x)
	b.minY = math.Min(b.minY, y)
	b.maxX = math.Max(b.maxX, x)
	b.maxY = math.Max(b.maxY, y)
	b.empty = false
}

// square pads the box and makes it square around its centre so the
// projection is not distorted by the chart aspect ratio.
func (b bounds) square(center [2]float64) (minX, maxX, minY, maxY float64) {
	if b.empty {
		const half = 10_000.0
		return center[0] - half, center[0] + half, center[1] - half, center[1] + half
	}
	half := math.Max(b.maxX-b.minX, b.maxY-b.minY)/2*1.1 + 500
	cx := (b.minX + b.maxX) / 2
	cy := (b.minY + b.maxY) / 2
	return cx - half, cx + half, cy - half, cy + half
}

func lineData(points []core.Point, b *bounds) []opts.LineData {
	xys := geo.XYs(geo.ProjectedLineString(points))
	data := make([]opts.LineData, len(xys))
	for i, xy := range xys {
		b.extend(xy[0], xy[1])
		data[i] = opts.LineData{Value: []interface{}{xy[0], xy[1]}}
	}
	return data
}

func marker(p core.Point, name string, b *bounds) []opts.ScatterData {
	x, y := geo.Project3857(p.Longitude, p.Latitude)
	b.extend(x, y)
	return []opts.ScatterData{{Name: name, Value: []interface{}{x, y}}}
}

// TrackChart draws the playback frame: full and current paths as lines,
// start, end and live positions as markers. center is used when the frame
// has no overlays.
func (r *Renderer) TrackChart(frame playback.Frame, center core.Point) *charts.Line {
	b := newBounds()
	cx, cy := geo.Project3857(center.Longitude, center.Latitude)

	line := charts.NewLine()
	markers := charts.NewScatter()

	for _, ov := range frame.Overlays {
		id := string(ov.VesselID)
		line.AddSeries(fmt.Sprintf("Ship %s Full Path", id), lineData(ov.FullPath, &b),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2, Color: "blue"}),
		)
		line.AddSeries(fmt.Sprintf("Ship %s Current Path", id), lineData(ov.CurrentPath, &b),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 4, Color: "red"}),
		)
		markers.AddSeries(fmt.Sprintf("Ship %s Start Point", id), marker(ov.Start, "Start", &b),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "green"}),
		)
		markers.AddSeries(fmt.Sprintf("Ship %s End Point", id), marker(ov.End, "End", &b),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
		)
		if ov.Live != nil {
			markers.AddSeries(fmt.Sprintf("Ship %s Current Position", id), marker(*ov.Live, ov.LiveText, &b),
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: "blue"}),
			)
		}
	}

	minX, maxX, minY, maxY := b.square([2]float64{cx, cy})
	subtitle := frame.TimeLabel
	if frame.Warning != "" {
		subtitle += "  " + frame.Warning
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(r.init("Ship Movement Visualization", "100%", trackHeight)),
		charts.WithTitleOpts(opts.Title{
			Title:      "Ship Movement Visualization",
			Subtitle:   subtitle,
			TitleStyle: &opts.TextStyle{Color: titleColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{a}<br>{b}"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: minX, Max: maxX, Name: "x (m, EPSG:3857)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: minY, Max: maxY, Name: "y (m, EPSG:3857)", NameLocation: "middle", NameGap: 60}),
	)
	line.Overlap(markers)
	return line
}
