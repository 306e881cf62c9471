package locator

import (
	"math"

	"github.com/rm-radar/radarstation/internal/geometry"
)

// spatialIndex is a uniform grid over the foreground cloud used to
// accelerate the neighbor queries Euclidean clustering needs: grounded on
// the same cell-bucketing idea as a k-d tree but cheaper to build fresh
// every tick than a balanced tree.
type spatialIndex struct {
	points   []geometry.Vec3
	cellSize float64
	cells    map[[3]int64][]int
}

func cellKey(p geometry.Vec3, cellSize float64) [3]int64 {
	return [3]int64{
		int64(math.Floor(p.X / cellSize)),
		int64(math.Floor(p.Y / cellSize)),
		int64(math.Floor(p.Z / cellSize)),
	}
}

func newSpatialIndex(points []geometry.Vec3, cellSize float64) *spatialIndex {
	idx := &spatialIndex{points: points, cellSize: cellSize, cells: make(map[[3]int64][]int)}
	for i, p := range points {
		k := cellKey(p, cellSize)
		idx.cells[k] = append(idx.cells[k], i)
	}
	return idx
}

// neighbors returns the indices of points within tolerance of points[i],
// scanning the point's cell and its 26 neighbors.
func (idx *spatialIndex) neighbors(i int, tolerance float64) []int {
	p := idx.points[i]
	base := cellKey(p, idx.cellSize)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := [3]int64{base[0] + dx, base[1] + dy, base[2] + dz}
				for _, j := range idx.cells[k] {
					if j == i {
						continue
					}
					if p.Distance(idx.points[j]) <= tolerance {
						out = append(out, j)
					}
				}
			}
		}
	}
	return out
}

// euclideanCluster groups points into connected components under the given
// tolerance (the PCL-style "Euclidean clustering" spec.md calls for, not a
// density-based DBSCAN pass — the connected-components step itself assigns
// every point to some component, there is no noise label at this stage).
// Components outside [minSize, maxSize] are dropped from the returned
// assignment entirely, matching PCL's EuclideanClusterExtraction semantics:
// a point whose component fails the size band becomes unclustered, not a
// member of an undersized/oversized cluster.
func euclideanCluster(points []geometry.Vec3, tolerance float64, minSize, maxSize int) map[int]int {
	idx := newSpatialIndex(points, tolerance)
	assignment := make(map[int]int, len(points))
	nextID := 0

	for i := range points {
		if _, seen := assignment[i]; seen {
			continue
		}
		id := nextID
		nextID++
		queue := []int{i}
		assignment[i] = id
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for _, n := range idx.neighbors(cur, tolerance) {
				if _, seen := assignment[n]; seen {
					continue
				}
				assignment[n] = id
				queue = append(queue, n)
			}
		}
	}

	sizes := make(map[int]int, nextID)
	for _, id := range assignment {
		sizes[id]++
	}
	for i, id := range assignment {
		if n := sizes[id]; n < minSize || n > maxSize {
			delete(assignment, i)
		}
	}
	return assignment
}

// Cluster implements §4.2.2: rebuilds the foreground cloud from the diff
// image, then runs Euclidean clustering over it.
func (l *Locator) Cluster() {
	w := l.cfg.zoomedWidth()
	l.foreground = l.foreground[:0]
	l.pixelIndex = make(map[[2]int]int)
	l.indexCluster = nil
	l.clustersByID = nil

	for i, d := range l.diffDepthImage {
		if d == 0 {
			continue
		}
		u, v := i%w, i/w
		p := l.cfg.Calibration.CameraToLidar(u, v, d, l.cfg.ZoomFactor)
		idx := len(l.foreground)
		l.foreground = append(l.foreground, p)
		l.pixelIndex[[2]int{u, v}] = idx
	}

	if len(l.foreground) == 0 {
		return
	}

	l.indexCluster = euclideanCluster(l.foreground, l.cfg.ClusterTolerance, l.cfg.MinClusterSize, l.cfg.MaxClusterSize)
	byID := make(map[int][]int)
	for pointIdx, clusterID := range l.indexCluster {
		byID[clusterID] = append(byID[clusterID], pointIdx)
	}
	l.clustersByID = byID
}
