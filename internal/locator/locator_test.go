package locator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/robot"
)

func identityCalibration() geometry.Calibration {
	k := geometry.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return geometry.NewCalibration(k, geometry.Identity4(), geometry.Identity4())
}

func testConfig() Config {
	return Config{
		Calibration:      identityCalibration(),
		ZoomFactor:       1,
		Width:            50,
		Height:           50,
		MaxDistance:      100,
		MinDepthDiff:     0.1,
		MaxDepthDiff:     5,
		QueueSize:        3,
		ClusterTolerance: 1,
		MinClusterSize:   1,
		MaxClusterSize:   1000,
	}
}

func TestUpdateEmptyCloudResetsForeground(t *testing.T) {
	l := New(testConfig())
	l.Update(nil)
	for _, d := range l.diffDepthImage {
		require.Equal(t, 0.0, d)
	}
}

func TestBackgroundDepthIsRunningMaximum(t *testing.T) {
	l := New(testConfig())
	// A point at (0, 0, depth) projects to pixel (0, 0) under the identity
	// calibration with zoom factor 1.
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 2}})
	i, ok := l.idx(0, 0)
	require.True(t, ok)
	require.Equal(t, 2.0, l.backgroundDepth[i])

	// A farther return raises the background maximum.
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 6}})
	require.Equal(t, 6.0, l.backgroundDepth[i])

	// A nearer return (foreground) never lowers it.
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 3}})
	require.Equal(t, 6.0, l.backgroundDepth[i])
}

func TestUpdateSkipsPointsBeyondMaxDistance(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDistance = 1
	l := New(cfg)
	l.Update([]geometry.Vec3{{X: 5, Y: 0, Z: 2}})
	// Within range, this point would project to pixel (2, 0).
	i, ok := l.idx(2, 0)
	require.True(t, ok)
	require.Equal(t, 0.0, l.backgroundDepth[i])
}

func TestUpdateSkipsZeroPoints(t *testing.T) {
	l := New(testConfig())
	l.Update([]geometry.Vec3{{}})
	i, ok := l.idx(0, 0)
	require.True(t, ok)
	require.Equal(t, 0.0, l.backgroundDepth[i])
}

func TestClusterProducesNoClustersWhenForegroundEmpty(t *testing.T) {
	l := New(testConfig())
	l.Update(nil)
	l.Cluster()
	require.Empty(t, l.foreground)
	require.Nil(t, l.clustersByID)
}

func TestClusterGroupsNearbyForegroundPoints(t *testing.T) {
	l := New(testConfig())
	// Seed the background with a far wall so the near points that follow
	// register as foreground once the band check passes.
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 10}})
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 6}})
	l.Cluster()

	require.NotEmpty(t, l.foreground)
	require.NotNil(t, l.clustersByID)
	// every point surviving the size band has a legal (>=0) cluster id.
	for _, id := range l.indexCluster {
		require.GreaterOrEqual(t, id, 0)
	}
}

func TestEuclideanClusterDropsUndersizedComponents(t *testing.T) {
	points := []geometry.Vec3{
		{X: 0, Y: 0, Z: 0},    // isolated: component size 1
		{X: 10, Y: 10, Z: 10}, // these three are mutually close: component size 3
		{X: 10.5, Y: 10, Z: 10},
		{X: 10, Y: 10.5, Z: 10},
	}
	assignment := euclideanCluster(points, 1, 2, 1000)

	_, ok := assignment[0]
	require.False(t, ok, "undersized component must be dropped entirely")
	for _, i := range []int{1, 2, 3} {
		_, ok := assignment[i]
		require.True(t, ok, "component of size 3 must survive a minSize of 2")
	}
}

func TestEuclideanClusterDropsOversizedComponents(t *testing.T) {
	points := []geometry.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.5, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}
	assignment := euclideanCluster(points, 1, 1, 2)
	require.Empty(t, assignment, "a 3-point component must be dropped when maxSize is 2")
}

func TestSearchLeavesLocationUnsetWithoutForeground(t *testing.T) {
	l := New(testConfig())
	l.Update(nil)
	l.Cluster()
	r := &robot.Robot{Rect: robot.Rect{X: 0, Y: 0, Width: 10, Height: 10}}
	l.Search(r)
	require.False(t, r.IsLocated())
}

func TestSearchLocatesRobotFromForeground(t *testing.T) {
	l := New(testConfig())
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 10}})
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 6}})
	l.Cluster()

	r := &robot.Robot{Rect: robot.Rect{X: 0, Y: 0, Width: 5, Height: 5}}
	l.Search(r)
	require.True(t, r.IsLocated())
}

func TestSearchLocatesRobotViaUnclusteredSentinel(t *testing.T) {
	// A lone foreground pixel forms a size-1 connected component, which
	// MinClusterSize=2 drops from indexCluster entirely. Search must still
	// locate the robot off the unclustered (-1) candidate, per spec §8's
	// "cluster id -1 is a legal winner if it has the largest candidate
	// list" boundary.
	cfg := testConfig()
	cfg.MinClusterSize = 2
	l := New(cfg)
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 10}})
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 6}})
	l.Cluster()

	require.NotEmpty(t, l.foreground)
	require.Empty(t, l.indexCluster, "the lone point's component must have been filtered out")

	r := &robot.Robot{Rect: robot.Rect{X: 0, Y: 0, Width: 5, Height: 5}}
	l.Search(r)
	require.True(t, r.IsLocated())
}

func TestSearchAllIsParallelSafe(t *testing.T) {
	l := New(testConfig())
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 10}})
	l.Update([]geometry.Vec3{{X: 0, Y: 0, Z: 6}})
	l.Cluster()

	robots := []*robot.Robot{
		{Rect: robot.Rect{X: 0, Y: 0, Width: 5, Height: 5}},
		{Rect: robot.Rect{X: 20, Y: 20, Width: 5, Height: 5}},
	}
	l.SearchAll(robots)
	require.True(t, robots[0].IsLocated())
	require.False(t, robots[1].IsLocated())
}
