// Package session holds the mutable playback state of one dashboard viewer.
package session

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

// Session owns the clock, motion state and controls of one playback.
// All methods are safe for concurrent use; the ticker and HTTP handlers
// serialize on the session mutex.
type Session struct {
	mu sync.RWMutex

	id      string
	created time.Time
	engine  *playback.Engine
	log     *slog.Logger

	clock       *playback.Clock
	motion      *playback.MotionState
	vessels     []core.VesselID
	speed       int
	startClicks int
	driftClicks int

	frame    playback.Frame
	hasFrame bool
	lastSeen time.Time
}

// Status is a point-in-time summary of a session.
type Status struct {
	ID       string          `json:"id"`
	Created  time.Time       `json:"created"`
	LastSeen time.Time       `json:"lastSeen"`
	Tick     int             `json:"tick"`
	Enabled  bool            `json:"enabled"`
	Speed    int             `json:"speed"`
	Mode     string          `json:"mode"`
	Vessels  []core.VesselID `json:"vessels"`
	Deviated bool            `json:"deviated"`
	// Drifting holds the motion flag of every vessel processed so far.
	Drifting map[core.VesselID]bool `json:"drifting"`
}

func newSession(id string, engine *playback.Engine, vessels []core.VesselID, speed int, now time.Time, logger *slog.Logger) *Session {
	s := &Session{
		id:       id,
		created:  now,
		engine:   engine,
		log:      logger.With("session", id),
		clock:    playback.NewClock(),
		motion:   playback.NewMotionState(),
		vessels:  slices.Clone(vessels),
		speed:    speed,
		lastSeen: now,
	}
	s.preview()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

// LastSeen returns when the session was created or last looked up.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// update recomputes the frame against motion. Caller holds the write lock.
// An empty vessel selection keeps the previous frame.
func (s *Session) update(motion *playback.MotionState) playback.Frame {
	tick := s.clock.Tick()
	frame, ok := s.engine.Update(playback.Request{
		Tick:        &tick,
		Vessels:     s.vessels,
		Speed:       s.speed,
		DriftClicks: s.driftClicks,
	}, motion)
	if ok {
		s.frame = frame
		s.hasFrame = true
	}
	return s.frame
}

// preview redraws the frame after a control change. Only ticks move the
// motion state, so controls work on a copy of it.
func (s *Session) preview() playback.Frame {
	return s.update(s.motion.Clone())
}

// Tick advances the clock if playback is running and recomputes the frame.
// Reports whether the clock advanced.
func (s *Session) Tick() (playback.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, advanced := s.clock.Advance(); !advanced {
		return s.frame, false
	}
	return s.update(s.motion), true
}

// Toggle registers a click on Start/Stop and returns the new running state.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startClicks++
	clicks := s.startClicks
	enabled := s.clock.Toggle(&clicks)
	s.log.Info("Playback toggled", "enabled", enabled, "tick", s.clock.Tick())
	return enabled
}

// ClickDrift registers a click on Move Ships and redraws the frame. The new
// mode takes effect on the motion state at the next tick.
func (s *Session) ClickDrift() playback.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.driftClicks++
	s.log.Info("Animation mode changed", "mode", playback.ModeFromClicks(s.driftClicks).String())
	return s.preview()
}

// SetVessels replaces the vessel selection and recomputes the frame.
func (s *Session) SetVessels(ids []core.VesselID) playback.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vessels = slices.Clone(ids)
	return s.preview()
}

// SetSpeed sets the simulated minutes per tick and recomputes the frame.
func (s *Session) SetSpeed(speed int) playback.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.speed = speed
	return s.preview()
}

// Reset rewinds the clock to tick 0.
func (s *Session) Reset() playback.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock.Reset()
	return s.preview()
}

// Frame returns the last computed frame. ok is false until a frame with at
// least one selected vessel has been computed.
func (s *Session) Frame() (playback.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.hasFrame
}

// Status returns a summary of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		ID:       s.id,
		Created:  s.created,
		LastSeen: s.lastSeen,
		Tick:     s.clock.Tick(),
		Enabled:  s.clock.Enabled(),
		Speed:    s.speed,
		Mode:     playback.ModeFromClicks(s.driftClicks).String(),
		Vessels:  slices.Clone(s.vessels),
		Deviated: s.frame.Deviated,
		Drifting: s.motion.Snapshot(),
	}
}
