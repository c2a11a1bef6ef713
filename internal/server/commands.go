package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cast"

	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/dispatcher"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/internal/session"
	"github.com/seatrace/trackdash/pkg/core"
)

// ErrInvalidArgs is returned when a command carries unusable arguments.
var ErrInvalidArgs = errors.New("invalid arguments")

// Telemetry records frames and cross-filter updates.
type Telemetry interface {
	WriteFrame(sessionID string, frame playback.Frame, at time.Time) error
	WriteCrossFilter(res crossfilter.Result, at time.Time) error
}

// Commands executes dispatcher events against the session registry and the
// cross-filter engine.
type Commands struct {
	Registry    *session.Registry
	CrossFilter *crossfilter.Engine
	Telemetry   Telemetry
	MinSpeed    int
	MaxSpeed    int
	Logger      *slog.Logger
}

// Register installs a handler for every command. Ticks are dropped while the
// previous tick is still being processed.
func (c *Commands) Register(d *dispatcher.Dispatcher) {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	d.Register(dispatcher.CmdTick, c.tick, dispatcher.DropWhileBusy())
	d.Register(dispatcher.CmdToggle, c.toggle, dispatcher.Logged())
	d.Register(dispatcher.CmdDrift, c.drift, dispatcher.Logged())
	d.Register(dispatcher.CmdVessels, c.vessels, dispatcher.Logged())
	d.Register(dispatcher.CmdSpeed, c.speed, dispatcher.Logged())
	d.Register(dispatcher.CmdReset, c.reset, dispatcher.Logged())
	d.Register(dispatcher.CmdCrossFilter, c.crossFilter, dispatcher.Logged())
}

// ClampSpeed limits speed to the slider range.
func ClampSpeed(speed, lo, hi int) int {
	if speed < lo {
		return lo
	}
	if hi >= lo && speed > hi {
		return hi
	}
	return speed
}

func (c *Commands) tick(e dispatcher.Event) (any, error) {
	c.Registry.EvictIdle()
	n := c.Registry.TickAll(func(id string, frame playback.Frame) {
		if c.Telemetry == nil {
			return
		}
		if err := c.Telemetry.WriteFrame(id, frame, e.Timestamp); err != nil {
			c.Logger.Warn("Failed to record frame", "session", id, "error", err)
		}
	})
	return n, nil
}

func (c *Commands) session(e dispatcher.Event) (*session.Session, error) {
	return c.Registry.Get(e.Session)
}

func (c *Commands) toggle(e dispatcher.Event) (any, error) {
	s, err := c.session(e)
	if err != nil {
		return nil, err
	}
	return s.Toggle(), nil
}

func (c *Commands) drift(e dispatcher.Event) (any, error) {
	s, err := c.session(e)
	if err != nil {
		return nil, err
	}
	return s.ClickDrift(), nil
}

func (c *Commands) vessels(e dispatcher.Event) (any, error) {
	s, err := c.session(e)
	if err != nil {
		return nil, err
	}
	ids := make([]core.VesselID, 0, len(e.Args))
	for _, a := range e.Args {
		ids = append(ids, core.VesselID(a))
	}
	return s.SetVessels(ids), nil
}

// speed expects the new speed as its only argument.
func (c *Commands) speed(e dispatcher.Event) (any, error) {
	s, err := c.session(e)
	if err != nil {
		return nil, err
	}
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("%w: speed takes one value", ErrInvalidArgs)
	}
	v, err := cast.ToIntE(e.Args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: speed %q", ErrInvalidArgs, e.Args[0])
	}
	return s.SetSpeed(ClampSpeed(v, c.MinSpeed, c.MaxSpeed)), nil
}

func (c *Commands) reset(e dispatcher.Event) (any, error) {
	s, err := c.session(e)
	if err != nil {
		return nil, err
	}
	return s.Reset(), nil
}

// crossFilter expects [source, prior selection] and optionally the clicked
// label. A click without a label changes nothing.
func (c *Commands) crossFilter(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 || len(e.Args) > 3 {
		return nil, fmt.Errorf("%w: crossfilter takes source, selection and label", ErrInvalidArgs)
	}
	trigger := crossfilter.ParseSource(e.Args[0])
	prior := e.Args[1]

	var label *string
	if len(e.Args) == 3 {
		label = &e.Args[2]
	}
	var shipType, navStatus *string
	switch trigger {
	case crossfilter.SourceShipType:
		shipType = label
	case crossfilter.SourceNavStatus:
		navStatus = label
	case crossfilter.SourceNone:
	}

	res := c.CrossFilter.Click(shipType, navStatus, trigger, prior)
	if c.Telemetry != nil {
		if err := c.Telemetry.WriteCrossFilter(res, e.Timestamp); err != nil {
			c.Logger.Warn("Failed to record cross-filter update", "error", err)
		}
	}
	return res, nil
}
