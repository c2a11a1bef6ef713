// Package track holds the recorded vessel tracks used by playback.
package track

import (
	"sort"

	"github.com/seatrace/trackdash/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// Store maps each vessel to its time-ordered samples.
// Built once at load time and read-only afterwards, so it is safe for
// concurrent readers without locking.
type Store struct {
	tracks map[core.VesselID][]core.PositionSample
	order  []core.VesselID
	center core.Point
}

// NewStore groups samples by vessel and sorts every track by timestamp.
// Equal timestamps keep their input order.
func NewStore(samples []core.PositionSample) *Store {
	sorted := make([]core.PositionSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := &Store{
		tracks: make(map[core.VesselID][]core.PositionSample),
	}

	lats := make([]float64, len(sorted))
	lons := make([]float64, len(sorted))
	for i, sample := range sorted {
		if _, ok := s.tracks[sample.VesselID]; !ok {
			s.order = append(s.order, sample.VesselID)
		}
		s.tracks[sample.VesselID] = append(s.tracks[sample.VesselID], sample)
		lats[i] = sample.Latitude
		lons[i] = sample.Longitude
	}

	if len(sorted) > 0 {
		s.center = core.Point{
			Latitude:  stat.Mean(lats, nil),
			Longitude: stat.Mean(lons, nil),
		}
	}

	return s
}

// Track returns the samples of one vessel in timestamp order.
// The returned slice must not be modified.
func (s *Store) Track(id core.VesselID) ([]core.PositionSample, bool) {
	samples, ok := s.tracks[id]
	if !ok || len(samples) == 0 {
		return nil, false
	}
	return samples, true
}

// VesselIDs lists vessels in order of their first recorded sample.
func (s *Store) VesselIDs() []core.VesselID {
	out := make([]core.VesselID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of vessels.
func (s *Store) Len() int {
	return len(s.order)
}

// Center is the mean position over all samples, used to centre the map.
func (s *Store) Center() core.Point {
	return s.center
}
