package models

// Rect is an axis-aligned box in frame pixel coordinates.
type Rect struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

func (r Rect) Width() float32 {
	return max(0, r.X2-r.X1)
}

func (r Rect) Height() float32 {
	return max(0, r.Y2-r.Y1)
}

func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float32, float32) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Intersection returns the overlapping area of r and b, zero when disjoint.
func (r Rect) Intersection(b Rect) float32 {
	w := min(r.X2, b.X2) - max(r.X1, b.X1)
	h := min(r.Y2, b.Y2) - max(r.Y1, b.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is one decoded candidate produced by the detector.
type Detection struct {
	Box        Rect    `json:"box"`
	Confidence float32 `json:"confidence"`
	ClassID    uint    `json:"class_id"`
}
