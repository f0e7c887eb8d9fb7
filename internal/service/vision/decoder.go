package vision

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

// scaleEpsilon widens the fraction and model-input bounds of the scale regime test.
const scaleEpsilon = 1e-6

// ScaleRegime says how raw box coordinates relate to frame pixels.
type ScaleRegime int

const (
	// ScaleFraction means coordinates are fractions of the frame size.
	ScaleFraction ScaleRegime = iota
	// ScaleModelInput means coordinates are pixels of the square model input.
	ScaleModelInput
	// ScaleFrame means coordinates are already frame pixels.
	ScaleFrame
)

func (s ScaleRegime) String() string {
	switch s {
	case ScaleFraction:
		return "fraction"
	case ScaleModelInput:
		return "model-input"
	case ScaleFrame:
		return "frame"
	}
	return fmt.Sprintf("ScaleRegime(%d)", int(s))
}

// Decoder turns raw detector output into pixel-space detections.
type Decoder struct {
	Threshold float32 // candidates at or below this confidence are dropped
	InputSize int     // side of the square model input, in pixels
}

func NewDecoder(threshold float32, inputSize int) *Decoder {
	return &Decoder{Threshold: threshold, InputSize: inputSize}
}

type candidate struct {
	cx, cy, w, h float32
	conf         float32
	class        uint
}

// Decode reads one tensor against a frameW x frameH frame. The returned slice is in
// tensor row order. A shape error means "no detections this frame".
func (d *Decoder) Decode(t Tensor, frameW, frameH int) ([]models.Detection, error) {
	if frameW <= 0 || frameH <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrShape, frameW, frameH)
	}
	tb, err := normalize(t)
	if err != nil {
		return nil, err
	}
	if tb.rows == 0 {
		return nil, nil
	}

	cands := score(tb)
	regime := d.regime(cands)

	fw, fh := float32(frameW), float32(frameH)
	var sx, sy float32
	switch regime {
	case ScaleFraction:
		sx, sy = fw, fh
	case ScaleModelInput:
		sx, sy = fw/float32(d.InputSize), fh/float32(d.InputSize)
	default:
		sx, sy = 1, 1
	}

	out := make([]models.Detection, 0, len(cands))
	for _, c := range cands {
		if !(c.conf > d.Threshold) {
			continue
		}
		cx, cy, w, h := c.cx*sx, c.cy*sy, c.w*sx, c.h*sy
		out = append(out, models.Detection{
			Box: models.Rect{
				X1: clamp(cx-w/2, 0, fw-1),
				Y1: clamp(cy-h/2, 0, fh-1),
				X2: clamp(cx+w/2, 0, fw-1),
				Y2: clamp(cy+h/2, 0, fh-1),
			},
			Confidence: c.conf,
			ClassID:    c.class,
		})
	}
	return out, nil
}

// Regime reports the scale regime Decode would pick for t, for diagnostics.
func (d *Decoder) Regime(t Tensor) (ScaleRegime, error) {
	tb, err := normalize(t)
	if err != nil {
		return ScaleFrame, err
	}
	return d.regime(score(tb)), nil
}

// regime is decided once for the whole batch from the largest coordinate value.
func (d *Decoder) regime(cands []candidate) ScaleRegime {
	var m float32
	for _, c := range cands {
		for _, v := range [4]float32{c.cx, c.cy, c.w, c.h} {
			if !math32.IsNaN(v) {
				m = math32.Max(m, v)
			}
		}
	}
	switch {
	case m <= 1+scaleEpsilon:
		return ScaleFraction
	case m <= float32(d.InputSize)+scaleEpsilon:
		return ScaleModelInput
	default:
		return ScaleFrame
	}
}

// score interprets the columns of every row.
//
//	K = 5:  cx cy w h conf
//	K = 6:  cx cy w h obj cls   when every cls value is in [0,1], conf = obj*cls
//	        cx cy w h conf id   otherwise
//	K >= 7: cx cy w h obj s0 s1 ...  conf = obj*max(s), class = argmax(s)
func score(tb table) []candidate {
	out := make([]candidate, tb.rows)
	for r := range out {
		out[r] = candidate{cx: tb.at(r, 0), cy: tb.at(r, 1), w: tb.at(r, 2), h: tb.at(r, 3)}
	}

	switch {
	case tb.cols == 5:
		for r := range out {
			out[r].conf = tb.at(r, 4)
		}
	case tb.cols == 6:
		probabilities := true
		for r := 0; r < tb.rows; r++ {
			if v := tb.at(r, 5); !(v >= 0 && v <= 1) {
				probabilities = false
				break
			}
		}
		for r := range out {
			if probabilities {
				out[r].conf = tb.at(r, 4) * tb.at(r, 5)
			} else {
				out[r].conf = tb.at(r, 4)
				out[r].class = classFromFloat(tb.at(r, 5))
			}
		}
	default:
		for r := range out {
			best, bestScore := 0, tb.at(r, 5)
			for c := 6; c < tb.cols; c++ {
				if s := tb.at(r, c); s > bestScore {
					best, bestScore = c-5, s
				}
			}
			out[r].conf = tb.at(r, 4) * bestScore
			out[r].class = uint(best)
		}
	}
	return out
}

func classFromFloat(v float32) uint {
	if math32.IsNaN(v) || v < 0 {
		return 0
	}
	return uint(math32.Round(v))
}

func clamp(v, lo, hi float32) float32 {
	if math32.IsNaN(v) {
		return lo
	}
	return math32.Max(lo, math32.Min(v, hi))
}
