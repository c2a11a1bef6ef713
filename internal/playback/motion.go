package playback

import "github.com/seatrace/trackdash/pkg/core"

// MotionState records, per vessel, whether synthetic drift was active on the
// previous update. Entries are created on first observation and never removed;
// the key space is bounded by the loaded dataset.
//
// MotionState is not safe for concurrent use. It belongs to exactly one
// session, which serializes access.
type MotionState struct {
	drifting map[core.VesselID]bool
}

// NewMotionState returns an empty state.
func NewMotionState() *MotionState {
	return &MotionState{drifting: make(map[core.VesselID]bool)}
}

// Drifting returns the vessel's flag; unseen vessels are not drifting.
func (m *MotionState) Drifting(id core.VesselID) bool {
	return m.drifting[id]
}

// Observe creates the entry for a vessel if it does not exist yet.
func (m *MotionState) Observe(id core.VesselID) {
	if _, ok := m.drifting[id]; !ok {
		m.drifting[id] = false
	}
}

// Set stores the vessel's flag.
func (m *MotionState) Set(id core.VesselID, drifting bool) {
	m.drifting[id] = drifting
}

// Known reports whether the vessel has been observed.
func (m *MotionState) Known(id core.VesselID) bool {
	_, ok := m.drifting[id]
	return ok
}

// Len returns the number of observed vessels.
func (m *MotionState) Len() int {
	return len(m.drifting)
}

// Clone returns an independent copy, for computing a frame without
// advancing the real state.
func (m *MotionState) Clone() *MotionState {
	return &MotionState{drifting: m.Snapshot()}
}

// Snapshot copies the current flags.
func (m *MotionState) Snapshot() map[core.VesselID]bool {
	out := make(map[core.VesselID]bool, len(m.drifting))
	for id, v := range m.drifting {
		out[id] = v
	}
	return out
}
