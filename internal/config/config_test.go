package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env in an empty directory

	cfg := Load()

	assert.Equal(t, 3, cfg.ConfirmFrames)
	assert.Equal(t, 115200, cfg.SerialBaud)
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyUSB0"}, cfg.SerialPorts)
	assert.Equal(t, 800*time.Millisecond, cfg.StepDelays[0])
	assert.Equal(t, 400*time.Millisecond, cfg.StepDelays[6])
	assert.True(t, cfg.HomeOnAbort)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIRM_FRAMES", "5")
	t.Setenv("TRIGGER_THRESHOLD", "0.75")
	t.Setenv("SERIAL_PORTS", " /dev/ttyS1 , ,/dev/ttyS2")
	t.Setenv("STEP_DELAYS_MS", "1,2,3,4,5,6,7,8")
	t.Setenv("HOME_ON_ABORT", "false")

	cfg := Load()

	assert.Equal(t, 5, cfg.ConfirmFrames)
	assert.InDelta(t, 0.75, cfg.TriggerThreshold, 1e-9)
	assert.Equal(t, []string{"/dev/ttyS1", "/dev/ttyS2"}, cfg.SerialPorts)
	assert.Equal(t, 8*time.Millisecond, cfg.StepDelays[7])
	assert.False(t, cfg.HomeOnAbort)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIRM_FRAMES", "three")
	t.Setenv("STEP_DELAYS_MS", "1,x")

	cfg := Load()

	assert.Equal(t, 3, cfg.ConfirmFrames)
	assert.Len(t, cfg.StepDelays, StepCount)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted base", func(c *Config) { c.BaseMin, c.BaseMax = 180, 0 }},
		{"zero confirm frames", func(c *Config) { c.ConfirmFrames = 0 }},
		{"bad box range", func(c *Config) { c.BoxHeightMin = 0.7 }},
		{"short delays", func(c *Config) { c.StepDelays = c.StepDelays[:3] }},
		{"unknown camera", func(c *Config) { c.CameraSource = "rtsp" }},
		{"unknown backend", func(c *Config) { c.InferenceBackend = "tflite" }},
		{"drop base past base max", func(c *Config) { c.DropBase = 250 }},
		{"home shoulder1 below min", func(c *Config) { c.HomeShoulder1 = 5 }},
		{"negative claw", func(c *Config) { c.ClawClosed = -30 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ReportsEverySetting(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	cfg.ConfirmFrames = 0
	cfg.CameraSource = "rtsp"
	cfg.DropBase = 250

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRM_FRAMES")
	assert.Contains(t, err.Error(), "CAMERA_SOURCE")
	assert.Contains(t, err.Error(), "DROP_BASE")
}
