package locator

import (
	"sync"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/robot"
)

// unclustered is the sentinel cluster id for a foreground pixel with no
// cluster membership; it is a legal winner in Search if it has the largest
// candidate list.
const unclustered = -1

// Search implements §4.2.3 for a single Robot: scales its rectangle into the
// zoomed image, groups foreground points under it by cluster id, and sets
// Location to the centroid of the largest cluster transformed to world
// frame. Missing rect, an empty scaled-rect intersection, or no candidates
// all leave Location unset — none of these are errors.
func (l *Locator) Search(r *robot.Robot) {
	w, h := l.cfg.zoomedWidth(), l.cfg.zoomedHeight()

	rect := robot.Rect{
		X:      r.Rect.X * l.cfg.ZoomFactor,
		Y:      r.Rect.Y * l.cfg.ZoomFactor,
		Width:  r.Rect.Width * l.cfg.ZoomFactor,
		Height: r.Rect.Height * l.cfg.ZoomFactor,
	}
	x0, y0 := int(rect.X), int(rect.Y)
	x1, y1 := int(rect.X+rect.Width), int(rect.Y+rect.Height)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}

	candidates := make(map[int][]geometry.Vec3)
	for v := y0; v < y1; v++ {
		for u := x0; u < x1; u++ {
			if l.diffDepthImage[v*w+u] == 0 {
				continue
			}
			pointIdx, ok := l.pixelIndex[[2]int{u, v}]
			if !ok {
				continue
			}
			clusterID := unclustered
			if id, ok := l.indexCluster[pointIdx]; ok {
				clusterID = id
			}
			candidates[clusterID] = append(candidates[clusterID], l.foreground[pointIdx])
		}
	}
	if len(candidates) == 0 {
		return
	}

	bestID, bestSize := 0, -1
	for id, pts := range candidates {
		if len(pts) > bestSize {
			bestID, bestSize = id, len(pts)
		}
	}
	pts := candidates[bestID]

	var sum geometry.Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	centroid := sum.Scale(1 / float64(len(pts)))

	r.SetLocation(l.cfg.Calibration.LidarToWorld(centroid))
}

// SearchAll is the parallel fan-out of Search across robots, matching
// §4.2.3's "search(robots)" — the Locator's structures are read-only during
// this phase so concurrent per-robot search is safe.
func (l *Locator) SearchAll(robots []*robot.Robot) {
	var wg sync.WaitGroup
	for _, r := range robots {
		wg.Add(1)
		go func(r *robot.Robot) {
			defer wg.Done()
			l.Search(r)
		}(r)
	}
	wg.Wait()
}
