package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/pkg/core"
)

// ErrUnknownSession is returned for an ID the registry does not hold.
var ErrUnknownSession = errors.New("unknown session")

// Defaults are the controls a new session starts with, and how long the
// registry keeps it.
type Defaults struct {
	Vessels []core.VesselID
	Speed   int
	// IdleTimeout evicts sessions not looked up for this long. Zero keeps
	// them until removed.
	IdleTimeout time.Duration
	// MaxSessions caps the registry; creating one more evicts the least
	// recently seen session. Zero means no cap.
	MaxSessions int
}

// Registry creates and tracks sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	engine   *playback.Engine
	defaults Defaults
	log      *slog.Logger
	now      func() time.Time
}

// NewRegistry creates an empty registry whose sessions share engine.
func NewRegistry(engine *playback.Engine, defaults Defaults, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		engine:   engine,
		defaults: defaults,
		log:      logger,
		now:      time.Now,
	}
}

// Create starts a new session with the registry defaults. At the session
// cap the least recently seen session makes room.
func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.engine, r.defaults.Vessels, r.defaults.Speed, r.now(), r.log)

	r.mu.Lock()
	var evicted string
	if r.defaults.MaxSessions > 0 && len(r.sessions) >= r.defaults.MaxSessions {
		evicted = r.oldestLocked()
		delete(r.sessions, evicted)
	}
	r.sessions[s.id] = s
	r.mu.Unlock()

	if evicted != "" {
		r.log.Info("Session evicted", "session", evicted, "reason", "capacity")
	}
	r.log.Info("Session created", "session", s.id, "vessels", len(r.defaults.Vessels))
	return s
}

// oldestLocked returns the least recently seen session. Caller holds r.mu.
func (r *Registry) oldestLocked() string {
	var (
		oldest string
		seen   time.Time
	)
	for id, s := range r.sessions {
		last := s.LastSeen()
		if oldest == "" || last.Before(seen) || (last.Equal(seen) && id < oldest) {
			oldest, seen = id, last
		}
	}
	return oldest
}

// Get looks up a session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSession
	}
	s.touch(r.now())
	return s, nil
}

// EvictIdle removes sessions not seen within the idle timeout and returns
// how many went.
func (r *Registry) EvictIdle() int {
	ttl := r.defaults.IdleTimeout
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var evicted []string
	for id, s := range r.sessions {
		if !s.LastSeen().After(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	for _, id := range evicted {
		r.log.Debug("Session evicted", "session", id, "reason", "idle")
	}
	if len(evicted) > 0 {
		r.log.Info("Idle sessions evicted", "evicted", len(evicted), "sessions", remaining, "idleTimeout", ttl)
	}
	return len(evicted)
}

// Remove drops a session. Unknown IDs are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns the live sessions ordered by creation time.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].created.Equal(out[j].created) {
			return out[i].id < out[j].id
		}
		return out[i].created.Before(out[j].created)
	})
	return out
}

// TickAll advances every running session once and returns how many advanced.
// onFrame, if set, receives the new frame of each advanced session.
func (r *Registry) TickAll(onFrame func(id string, frame playback.Frame)) int {
	n := 0
	for _, s := range r.Sessions() {
		frame, advanced := s.Tick()
		if !advanced {
			continue
		}
		n++
		if onFrame != nil {
			onFrame(s.id, frame)
		}
	}
	return n
}
