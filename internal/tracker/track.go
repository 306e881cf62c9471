package tracker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/robot"
)

// State is the Track lifecycle state, mirrored onto robot.TrackState when a
// track writes back into its matched Robot.
type State int

const (
	Tentative State = iota
	Confirmed
	Deleted
)

func (s State) robotState() robot.TrackState {
	switch s {
	case Confirmed:
		return robot.Confirmed
	case Deleted:
		return robot.Deleted
	default:
		return robot.Tentative
	}
}

// Track is a long-lived robot identity: a Singer-model filter over 3-D
// position, a running class-confidence feature vector, and the
// Tentative/Confirmed/Deleted lifecycle counters from §3/§4.3.3.
type Track struct {
	ID int
	// SessionID is a globally unique diagnostic handle, distinct from ID:
	// ID is a small integer counted up from 0 by the owning Tracker, so
	// separate Trackers (or separate runs) hand out the same IDs, while
	// SessionID is a random UUID and never repeats, so it's safe to grep a
	// log across runs.
	SessionID string
	State     State

	filter  *singerFilter
	feature []float64

	initCount int
	missCount int

	lastUpdate time.Time
}

// newTrack seeds a Tentative track from a located, detected robot.
func newTrack(id int, loc geometry.Vec3, feature []float64, now time.Time, cfg Config) *Track {
	f := make([]float64, len(feature))
	copy(f, feature)
	return &Track{
		ID:         id,
		SessionID:  fmt.Sprintf("trk_%s", uuid.NewString()),
		State:      Tentative,
		filter:     newSingerFilter(loc, cfg.MaxAcceleration, cfg.AccelerationCorrelationTime, cfg.ObservationNoise),
		feature:    f,
		lastUpdate: now,
	}
}

// Location returns the track's current filtered position estimate.
func (t *Track) Location() geometry.Vec3 { return t.filter.position() }

// Feature returns the track's current class-confidence feature vector.
func (t *Track) Feature() []float64 { return t.feature }

// Label returns the track's class label, the argmax of its feature vector.
// The spec's Track attributes don't carry a separate label field — only
// track_id, filter state, feature, state, and the lifecycle counters — so
// the label §4.3.4 writes into a Confirmed robot is derived from the
// feature distribution each time it's needed rather than stored and kept
// in sync by hand.
func (t *Track) Label() int {
	best, bestVal := 0, -1.0
	for i, v := range t.feature {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

func (t *Track) predict(now time.Time) {
	dt := now.Sub(t.lastUpdate)
	t.filter.predict(dt)
	t.lastUpdate = now
}

// observe performs the Kalman measurement update and refreshes the feature
// vector by an append-and-running-average rule: the new observation is
// blended in with equal weight to the running estimate, keeping the feature
// a fixed-size representative of recent observations rather than an
// ever-growing history (an explicit choice among the open feature-update
// rule in the spec, see DESIGN.md).
func (t *Track) observe(loc geometry.Vec3, feature []float64, now time.Time) {
	t.filter.update(loc)
	for i := range t.feature {
		if i < len(feature) {
			t.feature[i] = (t.feature[i] + feature[i]) / 2
		}
	}
	t.missCount = 0
	t.lastUpdate = now
}

// snapshot produces the robot.TrackSnapshot Tracker.Update writes back into
// a matched Robot.
func (t *Track) snapshot() robot.TrackSnapshot {
	return robot.TrackSnapshot{
		ID:       t.ID,
		State:    t.State.robotState(),
		Label:    t.Label(),
		Location: t.Location(),
	}
}
