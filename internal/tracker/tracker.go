// Package tracker implements the multi-object tracker: per-track Singer
// filters, a global max-utility assignment between predicted tracks and
// located/detected robots, and the Tentative/Confirmed/Deleted birth and
// death state machine.
package tracker

import (
	"time"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/robot"
)

// Config holds the Tracker's tunable parameters, injected at construction.
type Config struct {
	ClassNum   int
	InitThresh int
	MissThresh int

	MaxAcceleration             float64
	AccelerationCorrelationTime float64
	ObservationNoise            geometry.Vec3

	DistanceWeight float64
	FeatureWeight  float64
	DistanceThresh float64
	MaxIter        int
}

// Tracker owns the track list exclusively; Update is a serial critical
// region and must be called from a single goroutine at a time (matching
// §5: the orchestrator pipeline is single-threaded at this level, so no
// internal lock is taken here).
type Tracker struct {
	cfg     Config
	tracks  []*Track
	nextID  int
}

// New constructs an empty Tracker.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Tracks returns the current track list (including Tentative), for
// inspection/testing; callers must not mutate the returned slice.
func (tr *Tracker) Tracks() []*Track { return tr.tracks }

// Update implements §4.3.3: predicts every track, builds the cost matrix,
// computes assignment, applies per-track transitions, spawns new tracks for
// unmatched located+detected robots, writes every matched/spawned track
// back into its robot, and garbage-collects Deleted tracks before
// returning.
func (tr *Tracker) Update(robots []*robot.Robot, now time.Time) {
	for _, t := range tr.tracks {
		t.predict(now)
	}

	weights := matchWeights{
		distanceWeight: tr.cfg.DistanceWeight,
		featureWeight:  tr.cfg.FeatureWeight,
		distanceThresh: tr.cfg.DistanceThresh,
	}

	utility := make([][]float64, len(tr.tracks))
	for i, t := range tr.tracks {
		row := make([]float64, len(robots))
		for j, r := range robots {
			var d float64
			if r.IsLocated() {
				d = t.Location().Distance(r.Location)
			}
			row[j] = weights.cost(r.IsLocated(), r.IsDetected(), d, t.Feature(), r.Feature(tr.cfg.ClassNum))
		}
		utility[i] = row
	}

	var matchedRobot []int
	if len(tr.tracks) > 0 {
		matchedRobot = assign(utility, tr.cfg.MaxIter)
	}

	matchedByRobot := make([]int, len(robots))
	for i := range matchedByRobot {
		matchedByRobot[i] = unassigned
	}

	for i, t := range tr.tracks {
		robotIdx := unassigned
		if matchedRobot != nil {
			robotIdx = matchedRobot[i]
		}

		if robotIdx == unassigned {
			switch t.State {
			case Tentative:
				t.State = Deleted
			case Confirmed:
				t.missCount++
				if t.missCount >= tr.cfg.MissThresh {
					t.State = Deleted
				}
			}
			continue
		}

		r := robots[robotIdx]
		matchedByRobot[robotIdx] = i

		if r.IsLocated() {
			t.observe(r.Location, r.Feature(tr.cfg.ClassNum), now)
			if t.State == Tentative {
				t.initCount++
				if t.initCount >= tr.cfg.InitThresh {
					t.State = Confirmed
				}
			}
		}
		r.SetTrack(t.snapshot())
	}

	for j, r := range robots {
		if matchedByRobot[j] != unassigned {
			continue
		}
		if !r.IsDetected() || !r.IsLocated() {
			continue
		}
		t := newTrack(tr.nextID, r.Location, r.Feature(tr.cfg.ClassNum), now, tr.cfg)
		tr.nextID++
		tr.tracks = append(tr.tracks, t)
		r.SetTrack(t.snapshot())
	}

	kept := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.State != Deleted {
			kept = append(kept, t)
		}
	}
	tr.tracks = kept
}
