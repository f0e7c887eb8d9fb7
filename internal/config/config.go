package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StepCount is the number of choreography steps that take a settle delay.
const StepCount = 8

type Config struct {
	Port                  int
	LogDirectory          string
	LogLevel              string
	DatabasePath          string
	SnapshotDirectory     string
	SnapshotLimit         int
	SnapshotFlushInterval int // seconds
	EventHistory          int

	CameraSource string // "device" or "udp"
	CameraDevice int
	CamerasPort  int

	InferenceBackend string // "gocv" or "onnxruntime"
	ModelPath        string
	OnnxRuntimeLib   string
	ModelInputSize   int
	ClassLabels      []string

	DecodeThreshold  float64
	TriggerThreshold float64
	NmsIouThreshold  float64
	ConfirmFrames    int

	BaseMin      int
	BaseMax      int
	Shoulder1Min int
	Shoulder1Max int
	Shoulder2Min int
	Shoulder2Max int
	ClawOpen     int
	ClawClosed   int

	HomeBase      int
	HomeShoulder1 int
	HomeShoulder2 int
	DropBase      int
	LiftOffset    int

	BoxHeightMin float64 // fraction of frame height
	BoxHeightMax float64 // fraction of frame height

	StepDelays  []time.Duration
	HomeOnAbort bool

	SerialPorts    []string
	SerialPatterns []string
	SerialBaud     int
	SerialSettle   time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "picks.db")),
		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		SnapshotLimit:         getEnvAsInt("SNAPSHOT_LIMIT", 10),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),
		EventHistory:          getEnvAsInt("EVENT_HISTORY", 200),

		CameraSource: getEnv("CAMERA_SOURCE", "device"),
		CameraDevice: getEnvAsInt("CAMERA_DEVICE", 0),
		CamerasPort:  getEnvAsInt("CAMERAS_PORT", 5005),

		InferenceBackend: getEnv("INFERENCE_BACKEND", "gocv"),
		ModelPath:        getEnv("MODEL_PATH", "best.onnx"),
		OnnxRuntimeLib:   getEnv("ONNXRUNTIME_LIB", "onnxruntime.so"),
		ModelInputSize:   getEnvAsInt("MODEL_INPUT_SIZE", 640),
		ClassLabels:      getEnvAsList("CLASS_LABELS", []string{"pencil"}),

		DecodeThreshold:  getEnvAsFloat("DECODE_THRESHOLD", 0.30),
		TriggerThreshold: getEnvAsFloat("TRIGGER_THRESHOLD", 0.6),
		NmsIouThreshold:  getEnvAsFloat("NMS_IOU", 0.45),
		ConfirmFrames:    getEnvAsInt("CONFIRM_FRAMES", 3),

		BaseMin:      getEnvAsInt("BASE_MIN", 0),
		BaseMax:      getEnvAsInt("BASE_MAX", 180),
		Shoulder1Min: getEnvAsInt("SHOULDER1_MIN", 20),
		Shoulder1Max: getEnvAsInt("SHOULDER1_MAX", 160),
		Shoulder2Min: getEnvAsInt("SHOULDER2_MIN", 20),
		Shoulder2Max: getEnvAsInt("SHOULDER2_MAX", 160),
		ClawOpen:     getEnvAsInt("CLAW_OPEN", 60),
		ClawClosed:   getEnvAsInt("CLAW_CLOSED", 10),

		HomeBase:      getEnvAsInt("HOME_BASE", 0),
		HomeShoulder1: getEnvAsInt("HOME_SHOULDER1", 20),
		HomeShoulder2: getEnvAsInt("HOME_SHOULDER2", 20),
		DropBase:      getEnvAsInt("DROP_BASE", 150),
		LiftOffset:    getEnvAsInt("LIFT_OFFSET", 20),

		BoxHeightMin: getEnvAsFloat("BOX_HEIGHT_MIN", 0.02),
		BoxHeightMax: getEnvAsFloat("BOX_HEIGHT_MAX", 0.6),

		// pregrasp, approach, descend, grip, lift, transport, release, home
		StepDelays:  getEnvAsDurations("STEP_DELAYS_MS", []time.Duration{800, 800, 800, 600, 600, 800, 400, 800}),
		HomeOnAbort: getEnvAsBool("HOME_ON_ABORT", true),

		SerialPorts:    getEnvAsList("SERIAL_PORTS", []string{"/dev/ttyACM0", "/dev/ttyUSB0"}),
		SerialPatterns: getEnvAsList("SERIAL_PATTERNS", []string{"/dev/ttyACM*", "/dev/ttyUSB*"}),
		SerialBaud:     getEnvAsInt("SERIAL_BAUD", 115200),
		SerialSettle:   time.Duration(getEnvAsInt("SERIAL_SETTLE_MS", 1000)) * time.Millisecond,
	}
}

// Validate reports every inconsistent setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.ConfirmFrames < 1 {
		errs = append(errs, fmt.Errorf("CONFIRM_FRAMES must be at least 1, got %d", c.ConfirmFrames))
	}
	if c.ModelInputSize < 1 {
		errs = append(errs, fmt.Errorf("MODEL_INPUT_SIZE must be positive, got %d", c.ModelInputSize))
	}
	for _, r := range []struct {
		name     string
		min, max int
	}{
		{"BASE", c.BaseMin, c.BaseMax},
		{"SHOULDER1", c.Shoulder1Min, c.Shoulder1Max},
		{"SHOULDER2", c.Shoulder2Min, c.Shoulder2Max},
	} {
		if r.min > r.max {
			errs = append(errs, fmt.Errorf("%s_MIN (%d) is greater than %s_MAX (%d)", r.name, r.min, r.name, r.max))
		}
	}
	for _, p := range []struct {
		name     string
		v        int
		min, max int
	}{
		{"HOME_BASE", c.HomeBase, c.BaseMin, c.BaseMax},
		{"DROP_BASE", c.DropBase, c.BaseMin, c.BaseMax},
		{"HOME_SHOULDER1", c.HomeShoulder1, c.Shoulder1Min, c.Shoulder1Max},
		{"HOME_SHOULDER2", c.HomeShoulder2, c.Shoulder2Min, c.Shoulder2Max},
		{"CLAW_OPEN", c.ClawOpen, 0, 180},
		{"CLAW_CLOSED", c.ClawClosed, 0, 180},
	} {
		if p.v < p.min || p.v > p.max {
			errs = append(errs, fmt.Errorf("%s (%d) is outside [%d, %d]", p.name, p.v, p.min, p.max))
		}
	}
	if c.BoxHeightMin < 0 || c.BoxHeightMin >= c.BoxHeightMax {
		errs = append(errs, fmt.Errorf("BOX_HEIGHT_MIN (%v) must be in [0, BOX_HEIGHT_MAX (%v))", c.BoxHeightMin, c.BoxHeightMax))
	}
	if len(c.StepDelays) != StepCount {
		errs = append(errs, fmt.Errorf("STEP_DELAYS_MS needs %d values, got %d", StepCount, len(c.StepDelays)))
	}
	if c.SerialBaud <= 0 {
		errs = append(errs, fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.SerialBaud))
	}
	switch c.CameraSource {
	case "device", "udp":
	default:
		errs = append(errs, fmt.Errorf("CAMERA_SOURCE must be device or udp, got %q", c.CameraSource))
	}
	switch c.InferenceBackend {
	case "gocv", "onnxruntime":
	default:
		errs = append(errs, fmt.Errorf("INFERENCE_BACKEND must be gocv or onnxruntime, got %q", c.InferenceBackend))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsDurations parses a comma-separated list of milliseconds.
// Defaults are given in milliseconds too.
func getEnvAsDurations(key string, defaultValue []time.Duration) []time.Duration {
	toMillis := func(in []time.Duration) []time.Duration {
		out := make([]time.Duration, len(in))
		for i, d := range in {
			out[i] = d * time.Millisecond
		}
		return out
	}

	value := os.Getenv(key)
	if value == "" {
		return toMillis(defaultValue)
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || ms < 0 {
			return toMillis(defaultValue)
		}
		out = append(out, time.Duration(ms))
	}
	return toMillis(out)
}
