package detector

import (
	"time"

	"github.com/andresmejia3/vigil/internal/types"
)

// State is the presence bookkeeping for one detector run.
// WindowStart is only meaningful while Active is true.
type State struct {
	Active      bool
	WindowStart time.Time
	LastFire    time.Time
}

// Observe folds one frame's verdict into the state and reports whether a
// snapshot should be taken at now. Continuous presence fires once per full
// dwell interval: the window restarts at every fire.
func (s *State) Observe(inRegion bool, now time.Time, dwell time.Duration) bool {
	if !inRegion {
		s.Active = false
		return false
	}
	if !s.Active {
		s.Active = true
		s.WindowStart = now
		return false
	}
	if now.Sub(s.WindowStart) < dwell {
		return false
	}
	s.WindowStart = now
	s.LastFire = now
	return true
}

// InRegion reports whether any box's anchor lies inside region.
func InRegion(region types.Region, boxes []types.Box) bool {
	for _, b := range boxes {
		if region.Hit(b) {
			return true
		}
	}
	return false
}
