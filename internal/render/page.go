package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

// Dashboard is everything shown on the main page.
type Dashboard struct {
	SessionID   string
	Vessels     []core.VesselID
	Selected    []core.VesselID
	Speed       int
	MinSpeed    int
	MaxSpeed    int
	Running     bool
	Frame       playback.Frame
	Center      core.Point
	CrossFilter crossfilter.Result
}

var controlsTmpl = template.Must(template.New("controls").Parse(`
<div class="trackdash-controls" style="font-family:sans-serif;color:#fff;background:#1a1a1a;padding:12px">
  <h1 style="color:#1E90FF;text-align:center">Maritime Traffic Analysis Dashboard</h1>
  <form method="post" action="/api/playback/vessels?session={{.SessionID}}" style="display:inline">
    <input type="hidden" name="selection" value="{{.CrossFilter.Encoded}}">
    <select name="vessel" multiple>
      {{- range .Vessels}}
      <option value="{{.}}"{{if index $.SelectedSet .}} selected{{end}}>Ship {{.}}</option>
      {{- end}}
    </select>
    <button type="submit">Show</button>
  </form>
  <form method="post" action="/api/playback/speed?session={{.SessionID}}" style="display:inline">
    <input type="hidden" name="selection" value="{{.CrossFilter.Encoded}}">
    <label>Speed <input type="range" name="speed" min="{{.MinSpeed}}" max="{{.MaxSpeed}}" value="{{.Speed}}"></label>
    <button type="submit">Set</button>
  </form>
  <form method="post" action="/api/playback/toggle?session={{.SessionID}}" style="display:inline">
    <input type="hidden" name="selection" value="{{.CrossFilter.Encoded}}">
    <button type="submit">{{if .Running}}Stop{{else}}Start{{end}}</button>
  </form>
  <form method="post" action="/api/playback/drift?session={{.SessionID}}" style="display:inline">
    <input type="hidden" name="selection" value="{{.CrossFilter.Encoded}}">
    <button type="submit">Move Ships</button>
  </form>
  <span style="display:inline-block;width:14px;height:14px;border-radius:7px;background:{{.Indicator}}" title="Ship Direction"></span>
  <div>{{.TimeLabel}}</div>
  <div style="color:red">{{.Warning}}</div>
  <form method="post" action="/api/crossfilter?session={{.SessionID}}">
    <input type="hidden" name="selection" value="{{.CrossFilter.Encoded}}">
    <div>Ship Types:
      {{- range .CrossFilter.ShipTypeCounts}}
      <button type="submit" name="ship_type" value="{{.Label}}"{{if $.CrossFilter.Selection.ShipType.Is .Label}} style="font-weight:bold"{{end}}>{{.Label}} ({{.Count}})</button>
      {{- end}}
    </div>
    <div>Navigational Status:
      {{- range .CrossFilter.NavStatusCounts}}
      <button type="submit" name="nav_status" value="{{.Label}}"{{if $.CrossFilter.Selection.NavStatus.Is .Label}} style="font-weight:bold"{{end}}>{{.Label}} ({{.Count}})</button>
      {{- end}}
    </div>
  </form>
</div>
`))

type controlsData struct {
	Dashboard
	SelectedSet map[core.VesselID]bool
	Indicator   string
	TimeLabel   string
	Warning     string
}

// WriteDashboard renders the full page: controls followed by the track
// chart and both distribution pies.
func (r *Renderer) WriteDashboard(w io.Writer, d Dashboard) error {
	data := controlsData{
		Dashboard:   d,
		SelectedSet: make(map[core.VesselID]bool, len(d.Selected)),
		Indicator:   string(d.Frame.Indicator),
		TimeLabel:   d.Frame.TimeLabel,
		Warning:     d.Frame.Warning,
	}
	if data.Indicator == "" {
		data.Indicator = string(playback.Green)
	}
	for _, id := range d.Selected {
		data.SelectedSet[id] = true
	}

	var controls bytes.Buffer
	if err := controlsTmpl.Execute(&controls, data); err != nil {
		return fmt.Errorf("render controls: %w", err)
	}

	page := components.NewPage()
	if r.cfg.AssetsHost != "" {
		page.SetAssetsHost(r.cfg.AssetsHost)
	}
	page.AddCharts(
		r.TrackChart(d.Frame, d.Center),
		r.ShipTypePie(d.CrossFilter.ShipTypeCounts),
		r.NavStatusPie(d.CrossFilter.NavStatusCounts),
	)

	var charts bytes.Buffer
	if err := page.Render(&charts); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}

	out := injectAfterBody(charts.Bytes(), controls.Bytes())
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

// injectAfterBody places fragment right after the opening body tag, or in
// front of the document when there is none.
func injectAfterBody(doc, fragment []byte) []byte {
	tag := []byte("<body>")
	i := bytes.Index(doc, tag)
	if i < 0 {
		return append(append([]byte{}, fragment...), doc...)
	}
	i += len(tag)
	out := make([]byte, 0, len(doc)+len(fragment))
	out = append(out, doc[:i]...)
	out = append(out, fragment...)
	return append(out, doc[i:]...)
}
