package vision

import (
	"cmp"
	"slices"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

// iouEpsilon keeps IoU finite for zero-area boxes.
const iouEpsilon = 1e-8

// IoU is the intersection over union of two boxes.
func IoU(a, b models.Rect) float32 {
	inter := a.Intersection(b)
	return inter / (a.Area() + b.Area() - inter + iouEpsilon)
}

// Suppress performs greedy non-max suppression and returns the keepers ordered by
// descending confidence. Equal confidences keep their input order.
//
// Suppression is class-agnostic: a box of one class suppresses an overlapping,
// weaker box of another class.
func Suppress(dets []models.Detection, iouThreshold float32) []models.Detection {
	if len(dets) == 0 {
		return nil
	}

	order := slices.Clone(dets)
	slices.SortStableFunc(order, func(a, b models.Detection) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	removed := make([]bool, len(order))
	keep := make([]models.Detection, 0, len(order))
	for i := range order {
		if removed[i] {
			continue
		}
		keep = append(keep, order[i])
		for j := i + 1; j < len(order); j++ {
			if !removed[j] && IoU(order[i].Box, order[j].Box) > iouThreshold {
				removed[j] = true
			}
		}
	}
	return keep
}
