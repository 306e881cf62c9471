// Package config loads the runtime tuning parameters for the Locator,
// Tracker, and RefereeCommunicator from a JSON file. There is no
// config-file contract inside those packages themselves (§6): this is the
// one place that bridges a file on disk to the Config structs they're
// constructed with.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rm-radar/radarstation/internal/fsutil"
	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/security"
)

// DefaultConfigPath is the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig mirrors the Config structs of internal/locator and
// internal/tracker, plus the referee serial link settings, with
// pointer-optional fields: a
// nil field means "use the package default," so partial JSON documents are
// safe, matching the teacher's internal/config pattern.
type TuningConfig struct {
	// Locator / geometry
	ZoomFactor       *float64 `json:"zoom_factor,omitempty"`
	MaxDistance      *float64 `json:"max_distance,omitempty"`
	MinDepthDiff     *float64 `json:"min_depth_diff,omitempty"`
	MaxDepthDiff     *float64 `json:"max_depth_diff,omitempty"`
	QueueSize        *int     `json:"queue_size,omitempty"`
	ClusterTolerance *float64 `json:"cluster_tolerance,omitempty"`
	MinClusterSize   *int     `json:"min_cluster_size,omitempty"`
	MaxClusterSize   *int     `json:"max_cluster_size,omitempty"`

	// Camera frame size and calibration, row-major. A nil CalibrationK
	// leaves the Locator with an identity calibration, which is only
	// useful for tests; production deployments always supply one.
	Width, Height  *int       `json:"width,omitempty"`
	CalibrationK   *[9]float64  `json:"calibration_k,omitempty"`
	CalibrationLC  *[16]float64 `json:"calibration_lidar_to_camera,omitempty"`
	CalibrationWC  *[16]float64 `json:"calibration_world_to_camera,omitempty"`

	// Tracker
	ClassNum                    *int     `json:"class_num,omitempty"`
	InitThresh                  *int     `json:"init_thresh,omitempty"`
	MissThresh                  *int     `json:"miss_thresh,omitempty"`
	MaxAcceleration             *float64 `json:"max_acceleration,omitempty"`
	AccelerationCorrelationTime *float64 `json:"acceleration_correlation_time,omitempty"`
	ObservationNoiseX           *float64 `json:"observation_noise_x,omitempty"`
	ObservationNoiseY           *float64 `json:"observation_noise_y,omitempty"`
	ObservationNoiseZ           *float64 `json:"observation_noise_z,omitempty"`
	DistanceWeight              *float64 `json:"distance_weight,omitempty"`
	FeatureWeight               *float64 `json:"feature_weight,omitempty"`
	DistanceThresh              *float64 `json:"distance_thresh,omitempty"`
	MaxIter                     *int     `json:"max_iter,omitempty"`

	// RefereeCommunicator
	SerialPath      *string `json:"serial_path,omitempty"`
	PollInterval    *string `json:"poll_interval,omitempty"` // duration string like "20ms"
	SendMapInterval *string `json:"send_map_interval,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file via fs, validating
// the path is within allowedDir, has a .json extension, and is under the
// 1MB size cap.
func LoadTuningConfig(fs fsutil.FileSystem, allowedDir, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	if err := security.ValidatePathWithinDirectory(cleanPath, allowedDir); err != nil {
		return nil, err
	}

	info, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have a meaningful domain
// restriction.
func (c *TuningConfig) Validate() error {
	if c.ZoomFactor != nil && (*c.ZoomFactor <= 0 || *c.ZoomFactor > 1) {
		return fmt.Errorf("zoom_factor must be in (0, 1], got %f", *c.ZoomFactor)
	}
	if c.MinDepthDiff != nil && c.MaxDepthDiff != nil && *c.MinDepthDiff > *c.MaxDepthDiff {
		return fmt.Errorf("min_depth_diff (%f) must not exceed max_depth_diff (%f)", *c.MinDepthDiff, *c.MaxDepthDiff)
	}
	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", *c.PollInterval, err)
		}
	}
	if c.SendMapInterval != nil && *c.SendMapInterval != "" {
		if _, err := time.ParseDuration(*c.SendMapInterval); err != nil {
			return fmt.Errorf("invalid send_map_interval %q: %w", *c.SendMapInterval, err)
		}
	}
	return nil
}

func (c *TuningConfig) GetZoomFactor() float64 {
	if c.ZoomFactor == nil {
		return 0.5
	}
	return *c.ZoomFactor
}

func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 28.0
	}
	return *c.MaxDistance
}

func (c *TuningConfig) GetMinDepthDiff() float64 {
	if c.MinDepthDiff == nil {
		return 0.05
	}
	return *c.MinDepthDiff
}

func (c *TuningConfig) GetMaxDepthDiff() float64 {
	if c.MaxDepthDiff == nil {
		return 3.0
	}
	return *c.MaxDepthDiff
}

func (c *TuningConfig) GetQueueSize() int {
	if c.QueueSize == nil {
		return 5
	}
	return *c.QueueSize
}

func (c *TuningConfig) GetClusterTolerance() float64 {
	if c.ClusterTolerance == nil {
		return 0.3
	}
	return *c.ClusterTolerance
}

func (c *TuningConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 3
	}
	return *c.MinClusterSize
}

func (c *TuningConfig) GetMaxClusterSize() int {
	if c.MaxClusterSize == nil {
		return 5000
	}
	return *c.MaxClusterSize
}

func (c *TuningConfig) GetWidth() int {
	if c.Width == nil {
		return 1280
	}
	return *c.Width
}

func (c *TuningConfig) GetHeight() int {
	if c.Height == nil {
		return 720
	}
	return *c.Height
}

// GetCalibration builds the Locator's Calibration from the configured
// matrices, falling back to an identity camera/lidar/world alignment when
// none are supplied (only meaningful for tests and smoke runs).
func (c *TuningConfig) GetCalibration() geometry.Calibration {
	k := geometry.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if c.CalibrationK != nil {
		k = geometry.Mat3(*c.CalibrationK)
	}
	lc := geometry.Identity4()
	if c.CalibrationLC != nil {
		lc = geometry.Mat4(*c.CalibrationLC)
	}
	wc := geometry.Identity4()
	if c.CalibrationWC != nil {
		wc = geometry.Mat4(*c.CalibrationWC)
	}
	return geometry.NewCalibration(k, lc, wc)
}

func (c *TuningConfig) GetClassNum() int {
	if c.ClassNum == nil {
		return 8
	}
	return *c.ClassNum
}

func (c *TuningConfig) GetInitThresh() int {
	if c.InitThresh == nil {
		return 3
	}
	return *c.InitThresh
}

func (c *TuningConfig) GetMissThresh() int {
	if c.MissThresh == nil {
		return 5
	}
	return *c.MissThresh
}

func (c *TuningConfig) GetMaxAcceleration() float64 {
	if c.MaxAcceleration == nil {
		return 3.0
	}
	return *c.MaxAcceleration
}

func (c *TuningConfig) GetAccelerationCorrelationTime() float64 {
	if c.AccelerationCorrelationTime == nil {
		return 0.6
	}
	return *c.AccelerationCorrelationTime
}

func (c *TuningConfig) GetObservationNoise() (x, y, z float64) {
	x, y, z = 0.1, 0.1, 0.1
	if c.ObservationNoiseX != nil {
		x = *c.ObservationNoiseX
	}
	if c.ObservationNoiseY != nil {
		y = *c.ObservationNoiseY
	}
	if c.ObservationNoiseZ != nil {
		z = *c.ObservationNoiseZ
	}
	return x, y, z
}

func (c *TuningConfig) GetDistanceWeight() float64 {
	if c.DistanceWeight == nil {
		return 0.6
	}
	return *c.DistanceWeight
}

func (c *TuningConfig) GetFeatureWeight() float64 {
	if c.FeatureWeight == nil {
		return 0.4
	}
	return *c.FeatureWeight
}

func (c *TuningConfig) GetDistanceThresh() float64 {
	if c.DistanceThresh == nil {
		return 0.5
	}
	return *c.DistanceThresh
}

func (c *TuningConfig) GetMaxIter() int {
	if c.MaxIter == nil {
		return 100
	}
	return *c.MaxIter
}

func (c *TuningConfig) GetSerialPath() string {
	if c.SerialPath == nil {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPath
}

func (c *TuningConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return 20 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return 20 * time.Millisecond
	}
	return d
}

func (c *TuningConfig) GetSendMapInterval() time.Duration {
	if c.SendMapInterval == nil || *c.SendMapInterval == "" {
		return 50 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.SendMapInterval)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}
