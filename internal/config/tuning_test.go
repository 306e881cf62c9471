package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rm-radar/radarstation/internal/fsutil"
	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/testutil"
)

func TestEmptyTuningConfig(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.Nil(t, cfg.ZoomFactor)
	require.Nil(t, cfg.ClassNum)
	testutil.AssertNoError(t, cfg.Validate())
}

func TestLoadTuningConfig(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/cfg/tuning.json", []byte(`{
  "zoom_factor": 0.4,
  "max_distance": 20,
  "class_num": 4,
  "init_thresh": 2,
  "miss_thresh": 4
}`), 0644))

	cfg, err := LoadTuningConfig(fs, "/cfg", "/cfg/tuning.json")
	require.NoError(t, err)
	require.Equal(t, 0.4, cfg.GetZoomFactor())
	require.Equal(t, 20.0, cfg.GetMaxDistance())
	require.Equal(t, 4, cfg.GetClassNum())
	require.Equal(t, 2, cfg.GetInitThresh())
	require.Equal(t, 4, cfg.GetMissThresh())

	// Fields omitted from the JSON keep their package defaults.
	require.Equal(t, 5, cfg.GetQueueSize())
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/cfg/tuning.yaml", []byte("zoom_factor: 0.4"), 0644))
	_, err := LoadTuningConfig(fs, "/cfg", "/cfg/tuning.yaml")
	require.Error(t, err)
}

func TestLoadTuningConfigRejectsPathEscape(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/cfg/tuning.json", []byte(`{}`), 0644))
	_, err := LoadTuningConfig(fs, "/cfg/sub", "/cfg/tuning.json")
	testutil.AssertError(t, err)
}

func TestLoadTuningConfigRejectsInvalidJSON(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/cfg/tuning.json", []byte(`{"zoom_factor": `), 0644))
	_, err := LoadTuningConfig(fs, "/cfg", "/cfg/tuning.json")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config is valid", &TuningConfig{}, false},
		{"zoom factor too high", &TuningConfig{ZoomFactor: ptrFloat64(1.5)}, true},
		{"zoom factor zero", &TuningConfig{ZoomFactor: ptrFloat64(0)}, true},
		{"inverted depth band", &TuningConfig{MinDepthDiff: ptrFloat64(3), MaxDepthDiff: ptrFloat64(1)}, true},
		{"bad poll interval", &TuningConfig{PollInterval: ptrString("nope")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetPollIntervalDefault(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.Equal(t, 20*time.Millisecond, cfg.GetPollInterval())
}

func TestGetObservationNoiseDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	x, y, z := cfg.GetObservationNoise()
	require.Equal(t, 0.1, x)
	require.Equal(t, 0.1, y)
	require.Equal(t, 0.1, z)
}

func TestGetObservationNoisePartialOverride(t *testing.T) {
	cfg := &TuningConfig{ObservationNoiseY: ptrFloat64(0.5)}
	x, y, z := cfg.GetObservationNoise()
	require.Equal(t, 0.1, x)
	require.Equal(t, 0.5, y)
	require.Equal(t, 0.1, z)
}

func TestGetSerialPathDefault(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.Equal(t, "/dev/ttyUSB0", cfg.GetSerialPath())
	path := "/dev/ttyACM0"
	cfg.SerialPath = &path
	require.Equal(t, "/dev/ttyACM0", cfg.GetSerialPath())
}

func TestGetCalibrationDefaultsToIdentity(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.Equal(t, 1280, cfg.GetWidth())
	require.Equal(t, 720, cfg.GetHeight())

	cal := cfg.GetCalibration()
	origin := geometry.Vec3{X: 1, Y: 2, Z: 3}
	require.Equal(t, origin, cal.K.MulVec(origin))
}

func TestPtrInt(t *testing.T) {
	require.Equal(t, 3, *ptrInt(3))
}
