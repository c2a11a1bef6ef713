// Package crossfilter links the ship type and navigational status charts:
// a click on either narrows the attribute table both charts are drawn from.
package crossfilter

import (
	"log/slog"

	"github.com/seatrace/trackdash/internal/attribute"
	"github.com/seatrace/trackdash/pkg/core"
)

// EventSource tells which chart produced a click.
type EventSource int

const (
	SourceNone EventSource = iota
	SourceShipType
	SourceNavStatus
)

func (s EventSource) String() string {
	switch s {
	case SourceShipType:
		return "ship_type"
	case SourceNavStatus:
		return "nav_status"
	default:
		return ""
	}
}

// ParseSource maps a wire name to an EventSource. Unknown names are SourceNone.
func ParseSource(name string) EventSource {
	switch name {
	case "ship_type":
		return SourceShipType
	case "nav_status":
		return SourceNavStatus
	default:
		return SourceNone
	}
}

// Event is a click on a chart slice.
type Event struct {
	Source EventSource
	Label  string
}

// Result is everything the two charts need after an update.
type Result struct {
	Selection       core.Selection
	ShipTypeCounts  []attribute.CategoryCount
	NavStatusCounts []attribute.CategoryCount
	Encoded         string
}

// Engine applies click events to a selection over a fixed attribute table.
type Engine struct {
	table *attribute.Table
	log   *slog.Logger
}

// NewEngine creates a cross-filter engine over table.
func NewEngine(table *attribute.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: table, log: logger}
}

// Apply returns the selection after ev. Clicking the selected label clears
// the dimension, any other label replaces it. The other dimension is kept.
func Apply(sel core.Selection, ev Event) core.Selection {
	switch ev.Source {
	case SourceShipType:
		sel.ShipType = toggle(sel.ShipType, ev.Label)
	case SourceNavStatus:
		sel.NavStatus = toggle(sel.NavStatus, ev.Label)
	case SourceNone:
	}
	return sel
}

func toggle(cur core.Optional, label string) core.Optional {
	if cur.Is(label) {
		return core.Optional{}
	}
	return core.Some(label)
}

// Conditions turns a selection into table filter conditions.
func Conditions(sel core.Selection) []attribute.Condition {
	var conds []attribute.Condition
	if sel.ShipType.Set {
		conds = append(conds, attribute.Condition{Column: attribute.ShipType, Value: sel.ShipType.Value})
	}
	if sel.NavStatus.Set {
		conds = append(conds, attribute.Condition{Column: attribute.NavStatus, Value: sel.NavStatus.Value})
	}
	return conds
}

// Aggregate filters the table by sel and counts both dimensions over the
// filtered rows.
func (e *Engine) Aggregate(sel core.Selection) Result {
	rows := e.table.Filter(Conditions(sel)...)
	return Result{
		Selection:       sel,
		ShipTypeCounts:  attribute.Count(rows, attribute.ShipType),
		NavStatusCounts: attribute.Count(rows, attribute.NavStatus),
		Encoded:         Encode(sel),
	}
}

// Update decodes the prior selection, applies ev and aggregates. A prior that
// cannot be decoded is logged and treated as an empty selection. A click on a
// label its chart does not currently show changes nothing.
func (e *Engine) Update(ev Event, prior string) Result {
	sel, err := Decode(prior)
	if err != nil {
		e.log.Warn("Resetting unreadable selection", "error", err)
	}
	cur := e.Aggregate(sel)
	if ev.Source == SourceNone {
		return cur
	}
	if !offered(cur, ev) {
		e.log.Debug("Ignoring click on absent label", "source", ev.Source.String(), "label", ev.Label)
		return cur
	}

	next := Apply(sel, ev)
	e.log.Debug("Selection updated",
		"source", ev.Source.String(),
		"label", ev.Label,
		"shipType", next.ShipType.Value,
		"navStatus", next.NavStatus.Value)
	return e.Aggregate(next)
}

// offered reports whether ev names a slice of its chart in cur, or the
// label already selected on that chart.
func offered(cur Result, ev Event) bool {
	var counts []attribute.CategoryCount
	var selected core.Optional
	switch ev.Source {
	case SourceShipType:
		counts, selected = cur.ShipTypeCounts, cur.Selection.ShipType
	case SourceNavStatus:
		counts, selected = cur.NavStatusCounts, cur.Selection.NavStatus
	case SourceNone:
		return false
	}
	if selected.Is(ev.Label) {
		return true
	}
	for _, c := range counts {
		if c.Label == ev.Label {
			return true
		}
	}
	return false
}

// Click is the host-facing form of Update: both charts report their last
// clicked label and trigger names the one that fired.
func (e *Engine) Click(shipTypeClick, navStatusClick *string, trigger EventSource, prior string) Result {
	ev := Event{Source: trigger}
	switch trigger {
	case SourceShipType:
		if shipTypeClick == nil {
			ev.Source = SourceNone
		} else {
			ev.Label = *shipTypeClick
		}
	case SourceNavStatus:
		if navStatusClick == nil {
			ev.Source = SourceNone
		} else {
			ev.Label = *navStatusClick
		}
	case SourceNone:
	}
	return e.Update(ev, prior)
}
