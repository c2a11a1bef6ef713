package playback

import "time"

// Clock owns the tick counter advanced by the periodic trigger and the
// enabled flag that gates it. Starts disabled at tick 0.
type Clock struct {
	tick    int
	enabled bool
}

// NewClock returns a disabled clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// ToggleEnabled is the start/stop boundary: nil or zero clicks leave the
// state unchanged, any other count flips it.
func ToggleEnabled(clicks *int, current bool) bool {
	if clicks == nil || *clicks == 0 {
		return current
	}
	return !current
}

// Toggle applies ToggleEnabled to the clock and returns the new state.
func (c *Clock) Toggle(clicks *int) bool {
	c.enabled = ToggleEnabled(clicks, c.enabled)
	return c.enabled
}

// Advance increments the tick if the clock is enabled.
// Reports whether a tick happened.
func (c *Clock) Advance() (int, bool) {
	if !c.enabled {
		return c.tick, false
	}
	c.tick++
	return c.tick, true
}

// Tick returns the current tick count.
func (c *Clock) Tick() int {
	return c.tick
}

// Enabled reports whether the periodic trigger should fire.
func (c *Clock) Enabled() bool {
	return c.enabled
}

// Reset rewinds to tick 0 without touching the enabled flag.
func (c *Clock) Reset() {
	c.tick = 0
}

// Elapsed maps a tick and speed multiplier to simulated time:
// every tick advances speed minutes of the recording.
func Elapsed(tick, speed int) time.Duration {
	return time.Duration(tick) * time.Duration(speed) * time.Minute
}
