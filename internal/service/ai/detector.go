package ai

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/vision"
)

// Detector runs the object detection model on one frame and returns its raw output.
type Detector interface {
	Infer(frame gocv.Mat) (vision.Tensor, error)
	InputSize() int
	Close() error
}

// New builds the backend selected by INFERENCE_BACKEND.
func New(cfg *config.Config, logger *logger.Logger) (Detector, error) {
	switch cfg.InferenceBackend {
	case "gocv":
		return NewNetDetector(cfg.ModelPath, cfg.ModelInputSize, logger)
	case "onnxruntime":
		return NewOnnxDetector(cfg.ModelPath, cfg.OnnxRuntimeLib, cfg.ModelInputSize, logger)
	}
	return nil, fmt.Errorf("unknown inference backend %q", cfg.InferenceBackend)
}

// NetDetector runs the model through OpenCV's DNN module.
type NetDetector struct {
	net       gocv.Net
	inputSize int
	logger    *logger.Logger
}

func NewNetDetector(modelPath string, inputSize int, logger *logger.Logger) (*NetDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized from %s (input %dx%d)", modelPath, inputSize, inputSize)
	return &NetDetector{net: net, inputSize: inputSize, logger: logger}, nil
}

func (d *NetDetector) InputSize() int {
	return d.inputSize
}

// Infer scales the frame to the square model input (RGB, 0..1) and returns the first
// output blob as-is.
func (d *NetDetector) Infer(frame gocv.Mat) (vision.Tensor, error) {
	if frame.Empty() {
		return vision.Tensor{}, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return vision.Tensor{}, fmt.Errorf("failed to read network output: %w", err)
	}

	return vision.Tensor{
		Shape: output.Size(),
		Data:  append([]float32(nil), data...),
	}, nil
}

func (d *NetDetector) Close() error {
	return d.net.Close()
}
