package ai

import (
	"fmt"
	"image"
	"runtime"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/vision"
)

// OnnxDetector runs the model with ONNX Runtime. Tensors are allocated once and
// reused for every frame, so Infer must not be called concurrently.
type OnnxDetector struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	outputShape []int
	inputSize   int
}

func NewOnnxDetector(modelPath, libPath string, inputSize int, logger *logger.Logger) (*OnnxDetector, error) {
	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("error initializing onnxruntime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("expected one input and at least one output, model has %d and %d", len(inputs), len(outputs))
	}

	outputShape, err := staticShape(outputs[0].Dimensions)
	if err != nil {
		return nil, fmt.Errorf("output %s: %w", outputs[0].Name, err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(runtime.NumCPU())

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	shape := make([]int, len(outputShape))
	for i, d := range outputShape {
		shape[i] = int(d)
	}

	logger.Info("ONNX Runtime session ready: %s -> %s %v", inputs[0].Name, outputs[0].Name, shape)
	return &OnnxDetector{
		session:     session,
		input:       inputTensor,
		output:      outputTensor,
		outputShape: shape,
		inputSize:   inputSize,
	}, nil
}

// staticShape resolves a dynamic batch dimension to 1 and rejects any other
// dynamic dimension.
func staticShape(dims ort.Shape) (ort.Shape, error) {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		default:
			return nil, fmt.Errorf("dynamic dimension %d in %v", i, dims)
		}
	}
	return out, nil
}

func (d *OnnxDetector) InputSize() int {
	return d.inputSize
}

func (d *OnnxDetector) Infer(frame gocv.Mat) (vision.Tensor, error) {
	img, err := frame.ToImage()
	if err != nil {
		return vision.Tensor{}, fmt.Errorf("convert frame: %w", err)
	}

	resized := imaging.Resize(img, d.inputSize, d.inputSize, imaging.Linear)
	fillCHW(resized, d.input.GetData(), d.inputSize)

	if err := d.session.Run(); err != nil {
		return vision.Tensor{}, fmt.Errorf("model inference: %w", err)
	}

	return vision.Tensor{
		Shape: append([]int(nil), d.outputShape...),
		Data:  append([]float32(nil), d.output.GetData()...),
	}, nil
}

// fillCHW writes a size x size image into dst as planar RGB scaled to 0..1.
func fillCHW(pic image.Image, dst []float32, size int) {
	channelSize := size * size
	b := pic.Bounds()
	for y := 0; y < size; y++ {
		offset := y * size
		for x := 0; x < size; x++ {
			i := offset + x
			r, g, bl, _ := pic.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst[i] = float32(r>>8) / 255.0
			dst[channelSize+i] = float32(g>>8) / 255.0
			dst[channelSize*2+i] = float32(bl>>8) / 255.0
		}
	}
}

func (d *OnnxDetector) Close() error {
	var firstErr error
	for _, destroy := range []func() error{d.session.Destroy, d.input.Destroy, d.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
