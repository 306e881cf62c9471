// Package locator fuses a LiDAR point cloud with image-space robot
// rectangles to produce 3-D field-frame locations: a running-maximum depth
// background model isolates foreground motion, Euclidean clustering groups
// the foreground points, and per-robot search picks the dominant cluster
// inside each robot's projected rectangle.
package locator

import (
	"sync"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/monitoring"
)

// Config holds the tunable parameters the Locator is constructed with. All
// values are injected at construction time; there is no config-file
// contract inside this package (see internal/config for the loader that
// produces one of these).
type Config struct {
	Calibration geometry.Calibration

	// ZoomFactor shrinks the working depth image for throughput, (0, 1].
	ZoomFactor float64
	// Width/Height are the full-resolution camera frame dimensions; the
	// zoomed working resolution is Width*ZoomFactor x Height*ZoomFactor.
	Width, Height int

	MaxDistance float64

	MinDepthDiff float64
	MaxDepthDiff float64
	QueueSize    int

	ClusterTolerance float64
	MinClusterSize   int
	MaxClusterSize   int
}

func (c Config) zoomedWidth() int  { return int(float64(c.Width) * c.ZoomFactor) }
func (c Config) zoomedHeight() int { return int(float64(c.Height) * c.ZoomFactor) }

// depthFrame is a single zoomed-resolution depth image, row-major, indexed
// [v*width+u].
type depthFrame []float64

func newDepthFrame(width, height int) depthFrame {
	return make(depthFrame, width*height)
}

// Locator owns the background model, the depth frame queue, and the
// foreground/cluster structures across ticks. It exposes them read-only to
// the per-robot parallel Search phase, matching the single-writer,
// many-reader shape the rest of the pipeline uses.
type Locator struct {
	cfg Config

	mu              sync.Mutex // guards backgroundDepth during Update's parallel projection
	backgroundDepth depthFrame
	queue           []depthFrame

	diffDepthImage depthFrame

	foreground     []geometry.Vec3
	pixelIndex     map[[2]int]int
	indexCluster   map[int]int
	clustersByID   map[int][]int
}

// New constructs a Locator with a zeroed background model.
func New(cfg Config) *Locator {
	w, h := cfg.zoomedWidth(), cfg.zoomedHeight()
	return &Locator{
		cfg:             cfg,
		backgroundDepth: newDepthFrame(w, h),
	}
}

func (l *Locator) idx(u, v int) (int, bool) {
	w, h := l.cfg.zoomedWidth(), l.cfg.zoomedHeight()
	if u < 0 || u >= w || v < 0 || v >= h {
		return 0, false
	}
	return v*w + u, true
}

// Update implements §4.2.1: projects the cloud into the zoomed depth image,
// folds it into the running-maximum background model, enqueues the frame,
// and rebuilds the banded diff image against the queue.
func (l *Locator) Update(cloud []geometry.Vec3) {
	w, h := l.cfg.zoomedWidth(), l.cfg.zoomedHeight()
	frame := newDepthFrame(w, h)

	if len(cloud) == 0 {
		monitoring.Logf("locator: empty point cloud, skipping update")
		l.diffDepthImage = newDepthFrame(w, h)
		return
	}

	const workers = 8
	chunk := (len(cloud) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(cloud); start += chunk {
		end := start + chunk
		if end > len(cloud) {
			end = len(cloud)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for _, p := range cloud[start:end] {
				if p.IsZero() {
					continue
				}
				if p.X > l.cfg.MaxDistance {
					continue
				}
				px, ok := l.cfg.Calibration.LidarToCamera(p, l.cfg.ZoomFactor)
				if !ok {
					continue
				}
				i, inBounds := l.idx(px.U, px.V)
				if !inBounds {
					continue
				}

				l.mu.Lock()
				if px.D > l.backgroundDepth[i] {
					l.backgroundDepth[i] = px.D
				}
				l.mu.Unlock()

				frame[i] = px.D
			}
		}(start, end)
	}
	wg.Wait()

	l.queue = append(l.queue, frame)
	if len(l.queue) > l.cfg.QueueSize {
		l.queue = l.queue[len(l.queue)-l.cfg.QueueSize:]
	}

	diff := newDepthFrame(w, h)
	var diffWg sync.WaitGroup
	var diffMu sync.Mutex
	for _, f := range l.queue {
		diffWg.Add(1)
		go func(f depthFrame) {
			defer diffWg.Done()
			for i, d := range f {
				if d == 0 {
					continue
				}
				delta := l.backgroundDepth[i] - d
				if delta >= l.cfg.MinDepthDiff && delta <= l.cfg.MaxDepthDiff {
					diffMu.Lock()
					diff[i] = d
					diffMu.Unlock()
				}
			}
		}(f)
	}
	diffWg.Wait()
	l.diffDepthImage = diff
}
