// Package playback replays recorded vessel tracks against simulated time.
//
// Engine holds no mutable state; the per-session MotionState is passed in
// on every update.
package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/seatrace/trackdash/internal/geo"
	"github.com/seatrace/trackdash/pkg/core"
)

// DefaultDriftStep is the lat/lon offset, in degrees, of a synthetic drift point.
const DefaultDriftStep = 0.1

// WarningDeviated is shown while any vessel is drifting.
const WarningDeviated = "Warning: Ship deviated from its track!"

// TimeLayout formats the simulated clock for display.
const TimeLayout = "2006-01-02 15:04:05"

// Mode is the global animation mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDrift
)

// ModeFromClicks derives the mode from the "move ships" click counter:
// odd counts mean drift. Any count is accepted; only parity matters.
func ModeFromClicks(clicks int) Mode {
	if clicks%2 != 0 {
		return ModeDrift
	}
	return ModeNormal
}

func (m Mode) String() string {
	if m == ModeDrift {
		return "drift"
	}
	return "normal"
}

// Color is the deviation indicator colour.
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
)

// TrackSource provides recorded tracks. *track.Store implements it.
type TrackSource interface {
	Track(id core.VesselID) ([]core.PositionSample, bool)
}

// Config tunes the engine.
type Config struct {
	DriftStep float64
}

// Request is one playback update.
type Request struct {
	Tick        *int // nil at start, treated as 0
	Vessels     []core.VesselID
	Speed       int // simulated minutes per tick
	DriftClicks int
}

// Overlay is the geometry produced for one vessel.
type Overlay struct {
	VesselID    core.VesselID
	FullPath    []core.Point
	CurrentPath []core.Point
	Start       core.Point
	End         core.Point
	Live        *core.Point // nil when the current path is empty
	LiveText    string
	Drifted     bool
	CurrentTime time.Time
}

// Frame is the result of one update.
type Frame struct {
	Tick        int
	Speed       int
	Mode        Mode
	Overlays    []Overlay
	CurrentTime time.Time
	TimeLabel   string
	Warning     string
	Indicator   Color
	Deviated    bool
}

// Engine computes playback frames.
type Engine struct {
	tracks TrackSource
	cfg    Config
	log    *slog.Logger
}

// NewEngine creates an engine. A zero DriftStep falls back to DefaultDriftStep.
func NewEngine(tracks TrackSource, cfg Config, logger *slog.Logger) *Engine {
	if cfg.DriftStep == 0 {
		cfg.DriftStep = DefaultDriftStep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tracks: tracks, cfg: cfg, log: logger}
}

// DriftStep returns the configured drift offset.
func (e *Engine) DriftStep() float64 {
	return e.cfg.DriftStep
}

// Update computes the frame for req and refreshes motion.
// With no vessels selected it returns ok=false and leaves motion untouched;
// the caller keeps its previous frame.
func (e *Engine) Update(req Request, motion *MotionState) (frame Frame, ok bool) {
	if len(req.Vessels) == 0 {
		return Frame{}, false
	}

	tick := 0
	if req.Tick != nil && *req.Tick > 0 {
		tick = *req.Tick
	}
	speed := req.Speed
	if speed < 0 {
		e.log.Warn("Negative speed clamped to 0", "speed", speed)
		speed = 0
	}
	mode := ModeFromClicks(req.DriftClicks)

	frame = Frame{
		Tick:     tick,
		Speed:    speed,
		Mode:     mode,
		Overlays: make([]Overlay, 0, len(req.Vessels)),
	}

	for _, id := range req.Vessels {
		samples, found := e.tracks.Track(id)
		if !found {
			e.log.Warn("Vessel has no samples, skipping", "vessel", id)
			continue
		}

		ov := e.overlay(id, samples, tick, speed, mode, motion.Drifting(id))
		if ov.Drifted {
			frame.Deviated = true
		}

		motion.Observe(id)
		motion.Set(id, mode == ModeDrift)

		frame.CurrentTime = ov.CurrentTime
		frame.Overlays = append(frame.Overlays, ov)
	}

	if len(frame.Overlays) > 0 {
		frame.TimeLabel = "Current Time: " + frame.CurrentTime.Format(TimeLayout)
	}
	frame.Indicator = Green
	if frame.Deviated {
		frame.Warning = WarningDeviated
		frame.Indicator = Red
	}

	return frame, true
}

// overlay builds one vessel's geometry. wasDrifting is the motion flag as it
// stood before this update: drift shows from the second drift-mode update on.
func (e *Engine) overlay(id core.VesselID, samples []core.PositionSample, tick, speed int, mode Mode, wasDrifting bool) Overlay {
	base := samples[0].Timestamp
	current := base.Add(Elapsed(tick, speed))

	full := geo.SamplePoints(samples)
	cut := 0
	for cut < len(samples) && !samples[cut].Timestamp.After(current) {
		cut++
	}
	currentPath := make([]core.Point, cut, cut+1)
	copy(currentPath, full[:cut])

	ov := Overlay{
		VesselID:    id,
		FullPath:    full,
		Start:       full[0],
		End:         full[len(full)-1],
		CurrentTime: current,
	}

	if mode == ModeDrift && wasDrifting && len(currentPath) > 0 {
		drift := geo.Offset(currentPath[len(currentPath)-1], e.cfg.DriftStep)
		drift.Time = current.Add(Elapsed(1, speed))
		currentPath = append(currentPath, drift)
		ov.Drifted = true
	}
	ov.CurrentPath = currentPath

	if len(currentPath) > 0 {
		live := currentPath[len(currentPath)-1]
		ov.Live = &live
		ov.LiveText = fmt.Sprintf("Ship: %s<br>Time: %s", id, current.Format(TimeLayout))
	}

	return ov
}
