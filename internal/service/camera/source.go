package camera

import (
	"context"
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
)

// Source delivers BGR frames in arrival order. Next returns io.EOF at end of stream.
// The caller owns and must close every returned Mat.
type Source interface {
	Next(ctx context.Context) (gocv.Mat, error)
	Close() error
}

// Open builds the source selected by CAMERA_SOURCE.
func Open(cfg *config.Config, logger *logger.Logger) (Source, error) {
	switch cfg.CameraSource {
	case "device":
		return OpenDevice(cfg.CameraDevice, logger)
	case "udp":
		return ListenUDP(cfg.CamerasPort, logger)
	}
	return nil, fmt.Errorf("unknown camera source %q", cfg.CameraSource)
}

// DeviceSource reads from a local capture device.
type DeviceSource struct {
	capture *gocv.VideoCapture
	device  int
}

func OpenDevice(device int, logger *logger.Logger) (*DeviceSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %d did not open", device)
	}
	logger.Info("Camera %d opened", device)
	return &DeviceSource{capture: capture, device: device}, nil
}

func (s *DeviceSource) Next(ctx context.Context) (gocv.Mat, error) {
	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, err
	}
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return gocv.Mat{}, io.EOF
	}
	return mat, nil
}

func (s *DeviceSource) Close() error {
	return s.capture.Close()
}
