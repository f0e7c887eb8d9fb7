package vision

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a raw output tensor cannot be read as a table of candidates.
var ErrShape = errors.New("tensor cannot be read as a candidate table")

// transposeLimit is the largest first dimension that, paired with a larger second
// dimension, marks a tensor as candidates-as-columns (e.g. 1x5x8400 YOLO exports).
const transposeLimit = 20

// minColumns is cx, cy, w, h and one confidence column.
const minColumns = 5

// Tensor is the raw output of one inference run, row-major.
type Tensor struct {
	Shape []int
	Data  []float32
}

// table is a row-major N x K view over candidate rows.
type table struct {
	rows, cols int
	data       []float32
}

func (t table) at(r, c int) float32 {
	return t.data[r*t.cols+c]
}

// normalize turns any supported layout into an N x K candidate table.
//
// Accepted layouts:
//   - 2-D N x K
//   - trailing singleton dims (N x K x 1), stripped first
//   - leading singleton batch dims (1 x N x K)
//   - transposed K x N when K <= transposeLimit < N
//   - 1-D with a length divisible by 5 (read as N x 5)
//   - higher rank: every dim but the last is folded into rows
func normalize(t Tensor) (table, error) {
	total := 1
	for _, d := range t.Shape {
		if d < 0 {
			return table{}, fmt.Errorf("%w: negative dimension in %v", ErrShape, t.Shape)
		}
		total *= d
	}
	if len(t.Shape) == 0 {
		return table{}, fmt.Errorf("%w: empty shape", ErrShape)
	}
	if total != len(t.Data) {
		return table{}, fmt.Errorf("%w: shape %v needs %d values, have %d", ErrShape, t.Shape, total, len(t.Data))
	}
	if total == 0 {
		return table{cols: minColumns}, nil
	}

	shape := append([]int(nil), t.Shape...)
	for len(shape) > 2 && shape[len(shape)-1] == 1 {
		shape = shape[:len(shape)-1]
	}
	for len(shape) > 2 && shape[0] == 1 {
		shape = shape[1:]
	}

	var tb table
	switch len(shape) {
	case 1:
		if shape[0]%minColumns != 0 {
			return table{}, fmt.Errorf("%w: 1-D length %d is not a multiple of %d", ErrShape, shape[0], minColumns)
		}
		tb = table{rows: shape[0] / minColumns, cols: minColumns, data: t.Data}
	case 2:
		tb = table{rows: shape[0], cols: shape[1], data: t.Data}
		if tb.rows <= transposeLimit && tb.cols > transposeLimit {
			tb = transpose(tb)
		}
	default:
		cols := shape[len(shape)-1]
		tb = table{rows: total / cols, cols: cols, data: t.Data}
	}

	if tb.cols < minColumns {
		return table{}, fmt.Errorf("%w: %d columns, need at least %d", ErrShape, tb.cols, minColumns)
	}
	return tb, nil
}

func transpose(tb table) table {
	out := make([]float32, len(tb.data))
	for r := 0; r < tb.rows; r++ {
		for c := 0; c < tb.cols; c++ {
			out[c*tb.rows+r] = tb.data[r*tb.cols+c]
		}
	}
	return table{rows: tb.cols, cols: tb.rows, data: out}
}
