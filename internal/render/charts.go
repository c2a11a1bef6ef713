// Package render turns playback frames and cross-filter aggregates into
// ECharts options and HTML.
package render

import (
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/seatrace/trackdash/internal/attribute"
)

const (
	titleColor = "#1E90FF"
	pieHeight  = "420px"
)

// Config controls chart output.
type Config struct {
	// AssetsHost overrides where echarts.min.js is loaded from.
	// Empty uses the go-echarts default CDN.
	AssetsHost string
	Theme      string
}

// Renderer builds charts with shared settings.
type Renderer struct {
	cfg Config
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.Theme == "" {
		cfg.Theme = "dark"
	}
	return &Renderer{cfg: cfg}
}

func (r *Renderer) init(title, width, height string) opts.Initialization {
	return opts.Initialization{
		PageTitle:  title,
		Theme:      r.cfg.Theme,
		Width:      width,
		Height:     height,
		AssetsHost: r.cfg.AssetsHost,
	}
}

// ShipTypePie renders the ship type distribution.
func (r *Renderer) ShipTypePie(counts []attribute.CategoryCount) *charts.Pie {
	return r.pie("Ship Types", attribute.ShipType.String(), counts)
}

// NavStatusPie renders the navigational status distribution.
func (r *Renderer) NavStatusPie(counts []attribute.CategoryCount) *charts.Pie {
	return r.pie("Navigational Status", attribute.NavStatus.String(), counts)
}

// pie draws a donut whose slice labels show raw counts.
func (r *Renderer) pie(title, series string, counts []attribute.CategoryCount) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(r.init(title, "100%", pieHeight)),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Subtitle:   fmt.Sprintf("%d records", attribute.Total(counts)),
			TitleStyle: &opts.TextStyle{Color: titleColor, FontSize: 24},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Orient: "vertical", Left: "right"}),
	)
	pie.AddSeries(series, pieData(counts),
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{c}"}),
		charts.WithItemStyleOpts(opts.ItemStyle{BorderColor: "#000000", BorderWidth: 2}),
	)
	return pie
}

func pieData(counts []attribute.CategoryCount) []opts.PieData {
	data := make([]opts.PieData, 0, len(counts))
	for _, c := range counts {
		data = append(data, opts.PieData{Name: c.Label, Value: c.Count})
	}
	return data
}
