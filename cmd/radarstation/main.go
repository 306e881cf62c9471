// Command radarstation runs the perception core: it fuses per-frame camera
// detections and LiDAR point clouds into located, tracked robots and reports
// enemy positions to the referee system over a serial link.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rm-radar/radarstation/internal/config"
	"github.com/rm-radar/radarstation/internal/fsutil"
	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/locator"
	"github.com/rm-radar/radarstation/internal/monitoring"
	"github.com/rm-radar/radarstation/internal/referee"
	"github.com/rm-radar/radarstation/internal/robot"
	"github.com/rm-radar/radarstation/internal/tracker"
	"github.com/rm-radar/radarstation/internal/version"
)

var (
	configPath   = flag.String("config", "", "path to tuning config JSON (optional, defaults applied if empty)")
	serialFlag   = flag.String("serial", "", "override the referee serial device path from config")
	ownIsRed     = flag.Bool("red", true, "true if this station belongs to the red alliance")
	sendMapFlag  = flag.Duration("send-map-interval", 0, "override config's send_map_interval")
	printVersion = flag.Bool("version", false, "print the version and exit")
)

// FrameSource is the external collaborator this core polls once per cycle
// for camera detections (car-class boxes and armor-class boxes, both in
// absolute image space) and the LiDAR point cloud (§6 EXTERNAL INTERFACES).
// Camera/LiDAR drivers are out of scope for this repo; callers inject a
// FrameSource that wraps their own sensor stack. Grouping armors under their
// car is robot.AssembleAll's job, not the FrameSource's.
type FrameSource interface {
	NextFrame(ctx context.Context) (cars []robot.Detection, armors []robot.Detection, cloud []geometry.Vec3, err error)
}

// idleFrameSource produces empty frames on every poll. It keeps the referee
// link and tracker loop alive when no real sensor stack is wired in, which is
// useful for smoke-testing the serial protocol in isolation.
type idleFrameSource struct{}

func (idleFrameSource) NextFrame(ctx context.Context) ([]robot.Detection, []robot.Detection, []geometry.Vec3, error) {
	return nil, nil, nil, nil
}

func main() {
	flag.Parse()

	if *printVersion {
		log.Printf("radarstation v%s (git SHA: %s)", version.Version, version.GitSHA)
		return
	}

	fs := fsutil.OSFileSystem{}
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		dir, err := filepath.Abs(filepath.Dir(*configPath))
		if err != nil {
			log.Fatalf("radarstation: resolving config dir: %v", err)
		}
		loaded, err := config.LoadTuningConfig(fs, dir, *configPath)
		if err != nil {
			log.Fatalf("radarstation: loading config: %v", err)
		}
		cfg = loaded
	}

	serialPath := cfg.GetSerialPath()
	if *serialFlag != "" {
		serialPath = *serialFlag
	}

	x, y, z := cfg.GetObservationNoise()
	trk := tracker.New(tracker.Config{
		ClassNum:                    cfg.GetClassNum(),
		InitThresh:                  cfg.GetInitThresh(),
		MissThresh:                  cfg.GetMissThresh(),
		MaxAcceleration:             cfg.GetMaxAcceleration(),
		AccelerationCorrelationTime: cfg.GetAccelerationCorrelationTime(),
		ObservationNoise:            geometry.Vec3{X: x, Y: y, Z: z},
		DistanceWeight:              cfg.GetDistanceWeight(),
		FeatureWeight:               cfg.GetFeatureWeight(),
		DistanceThresh:              cfg.GetDistanceThresh(),
		MaxIter:                     cfg.GetMaxIter(),
	})

	loc := locator.New(locator.Config{
		Calibration:      cfg.GetCalibration(),
		Width:            cfg.GetWidth(),
		Height:           cfg.GetHeight(),
		ZoomFactor:       cfg.GetZoomFactor(),
		MaxDistance:      cfg.GetMaxDistance(),
		MinDepthDiff:     cfg.GetMinDepthDiff(),
		MaxDepthDiff:     cfg.GetMaxDepthDiff(),
		QueueSize:        cfg.GetQueueSize(),
		ClusterTolerance: cfg.GetClusterTolerance(),
		MinClusterSize:   cfg.GetMinClusterSize(),
		MaxClusterSize:   cfg.GetMaxClusterSize(),
	})

	conn := referee.Connect(serialPath)
	monitoring.Logf("radarstation: referee link connected=%v path=%s", conn.IsConnected(), serialPath)

	sendMapInterval := cfg.GetSendMapInterval()
	if *sendMapFlag > 0 {
		sendMapInterval = *sendMapFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go conn.Monitor(ctx, cfg.GetPollInterval())

	var source FrameSource = idleFrameSource{}
	run(ctx, source, loc, trk, conn, sendMapInterval, cfg.GetClassNum(), *ownIsRed)
}

// run drives the perception loop: poll a frame, assemble robots, locate and
// track them, then periodically report enemy positions to the referee
// system. It returns when ctx is canceled. assumedColor is this station's
// configured alliance, used only until the referee link has delivered its
// first robot_status record (see Communicator.OwnColor).
func run(ctx context.Context, source FrameSource, loc *locator.Locator, trk *tracker.Tracker, conn *referee.Connector, sendMapInterval time.Duration, classNum int, assumedColor bool) {
	ticker := time.NewTicker(sendMapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("radarstation: shutting down")
			return
		case <-ticker.C:
			cars, armors, cloud, err := source.NextFrame(ctx)
			if err != nil {
				monitoring.Logf("radarstation: frame source error: %v", err)
				continue
			}

			loc.Update(cloud)
			loc.Cluster()

			assembled := robot.AssembleAll(cars, armors)
			robots := make([]*robot.Robot, len(assembled))
			for i := range assembled {
				robots[i] = &assembled[i]
			}
			loc.SearchAll(robots)
			trk.Update(robots, time.Now())

			ownColor := conn.OwnColor(assumedColor)
			mapRobots := make([]referee.MapRobot, 0, len(robots))
			for _, r := range robots {
				if !r.IsLocated() || !r.IsDetected() {
					continue
				}
				mapRobots = append(mapRobots, referee.RobotToMapRobot(r, classNum))
			}
			if err := conn.SendMapRobot(mapRobots, ownColor); err != nil {
				monitoring.Logf("radarstation: send map robot failed: %v", err)
			}
		}
	}
}
