// Package robot holds the per-frame Detection and Robot entities and the
// armor-vote assembly step that turns a car detection plus its armor
// detections into a labeled Robot.
package robot

import (
	"math"

	"github.com/rm-radar/radarstation/internal/geometry"
)

// TrackState mirrors the lifecycle state of the Track a Robot is (or isn't)
// associated with this tick.
type TrackState int

const (
	// Unassociated means the Robot carries no track_state: no confirmed or
	// tentative Track has written through it yet.
	Unassociated TrackState = iota
	Tentative
	Confirmed
	Deleted
)

// Rect is an image-space rectangle in pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether point (x, y) lies inside r, with boundary points
// counted as inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Detection is an immutable external input: an image-space rectangle with a
// class label and confidence, produced by the (out of scope) detector.
type Detection struct {
	Rect       Rect
	Label      int
	Confidence float64
}

// Robot is the per-frame working entity rebuilt each tick from a car
// detection plus its armor detections. Every field besides Rect is
// independently optional; presence is tracked explicitly rather than via
// zero-value sentinels, since a zero confidence or a zero location is a
// legitimate value.
type Robot struct {
	Rect Rect

	hasLabel bool
	Label    int

	hasConfidence bool
	Confidence    float64

	Armors []Detection

	hasLocation bool
	Location    geometry.Vec3

	TrackState TrackState
	TrackID    int
}

// IsDetected reports whether a label was assigned (armor votes produced a
// winner).
func (r *Robot) IsDetected() bool { return r.hasLabel }

// IsLocated reports whether a 3-D location has been set, by the Locator or
// by SetTrack (a Confirmed track always, a Tentative one only when no
// location was set yet).
func (r *Robot) IsLocated() bool { return r.hasLocation }

// SetLabel assigns the label and marks it present.
func (r *Robot) SetLabel(label int) { r.Label = label; r.hasLabel = true }

// SetConfidence assigns the confidence and marks it present.
func (r *Robot) SetConfidence(c float64) { r.Confidence = c; r.hasConfidence = true }

// SetLocation assigns the 3-D location and marks it present.
func (r *Robot) SetLocation(p geometry.Vec3) { r.Location = p; r.hasLocation = true }

// Assemble builds a Robot from a car detection and the armor detections that
// fall inside its rectangle. Armor coordinates are translated from
// detection-local to absolute image space by adding the car's top-left
// corner. If armors is empty, the Robot carries only Rect.
func Assemble(car Detection, armors []Detection) Robot {
	r := Robot{Rect: car.Rect}
	if len(armors) == 0 {
		return r
	}

	shifted := make([]Detection, len(armors))
	confidenceByLabel := map[int]float64{}
	countByLabel := map[int]int{}
	for i, a := range armors {
		shifted[i] = Detection{
			Rect: Rect{
				X:      a.Rect.X + car.Rect.X,
				Y:      a.Rect.Y + car.Rect.Y,
				Width:  a.Rect.Width,
				Height: a.Rect.Height,
			},
			Label:      a.Label,
			Confidence: a.Confidence,
		}
		confidenceByLabel[a.Label] += a.Confidence
		countByLabel[a.Label]++
	}
	r.Armors = shifted

	winner, winnerSum := 0, math.Inf(-1)
	for label, sum := range confidenceByLabel {
		if sum > winnerSum {
			winner, winnerSum = label, sum
		}
	}
	r.SetLabel(winner)
	r.SetConfidence(winnerSum / float64(countByLabel[winner]))
	return r
}

// AssembleAll buckets a flat, absolute-image-space armor detection stream
// under the car detection whose rectangle contains it, then assembles each
// car into a Robot. This is where §4.1's "the list of armor detections
// whose bounding boxes fall inside the car's rectangle" containment test
// actually happens: an armor is bucketed under the first car (in input
// order) whose Rect.Contains its center point, so an armor at the exact
// boundary of a car's rectangle is still grouped under it. An armor inside
// no car's rectangle is dropped.
func AssembleAll(cars []Detection, armors []Detection) []Robot {
	grouped := make([][]Detection, len(cars))
	for _, a := range armors {
		cx, cy := a.Rect.X+a.Rect.Width/2, a.Rect.Y+a.Rect.Height/2
		for i, car := range cars {
			if !car.Rect.Contains(cx, cy) {
				continue
			}
			grouped[i] = append(grouped[i], Detection{
				Rect: Rect{
					X:      a.Rect.X - car.Rect.X,
					Y:      a.Rect.Y - car.Rect.Y,
					Width:  a.Rect.Width,
					Height: a.Rect.Height,
				},
				Label:      a.Label,
				Confidence: a.Confidence,
			})
			break
		}
	}

	robots := make([]Robot, len(cars))
	for i, car := range cars {
		robots[i] = Assemble(car, grouped[i])
	}
	return robots
}

// TrackSnapshot is the minimal view of a Track that Tracker.Update writes
// back into a Robot via SetTrack. It exists to avoid a robot<->tracker
// import cycle: tracker.Track carries far more state (filter, feature
// history) than a Robot ever needs to see.
type TrackSnapshot struct {
	ID       int
	State    TrackState
	Label    int
	Location geometry.Vec3
}

// SetTrack implements the Robot.setTrack contract: the track's state is
// always copied onto the robot. A Confirmed track's label and location
// always win. A Tentative track's label/location only fill in what the
// robot doesn't already have, so a Locator-derived location or armor-vote
// label is never clobbered by a brand-new track still finding its feet.
func (r *Robot) SetTrack(t TrackSnapshot) {
	r.TrackState = t.State
	r.TrackID = t.ID
	switch t.State {
	case Confirmed:
		r.SetLabel(t.Label)
		r.SetLocation(t.Location)
	case Tentative:
		if !r.hasLabel {
			r.SetLabel(t.Label)
		}
		if !r.hasLocation {
			r.SetLocation(t.Location)
		}
	}
}

// Feature returns a length-classNum vector whose i-th entry is the sum of
// confidences of armors with label i, L1-normalized. Returns the zero vector
// when there are no armors or the confidence sum is zero.
func (r *Robot) Feature(classNum int) []float64 {
	f := make([]float64, classNum)
	var sum float64
	for _, a := range r.Armors {
		if a.Label >= 0 && a.Label < classNum {
			f[a.Label] += a.Confidence
			sum += a.Confidence
		}
	}
	if sum == 0 {
		return f
	}
	for i := range f {
		f[i] /= sum
	}
	return f
}
