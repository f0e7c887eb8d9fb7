package arm

import (
	"math"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
)

// JointTarget is a pose in whole degrees.
type JointTarget struct {
	Base      int `json:"base"`
	Shoulder1 int `json:"shoulder1"`
	Shoulder2 int `json:"shoulder2"`
	Claw      int `json:"claw"`
}

type Range struct {
	Min int
	Max int
}

func (r Range) clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

// Calibration holds the servo limits and fixed poses of one arm.
type Calibration struct {
	Base       Range
	Shoulder1  Range
	Shoulder2  Range
	ClawOpen   int
	ClawClosed int

	HomeBase      int
	HomeShoulder1 int
	HomeShoulder2 int
	DropBase      int
	LiftOffset    int

	// Box heights outside this band, as fractions of frame height, saturate shoulder2.
	BoxHeightMin float64
	BoxHeightMax float64
}

func CalibrationFromConfig(cfg *config.Config) Calibration {
	return Calibration{
		Base:          Range{cfg.BaseMin, cfg.BaseMax},
		Shoulder1:     Range{cfg.Shoulder1Min, cfg.Shoulder1Max},
		Shoulder2:     Range{cfg.Shoulder2Min, cfg.Shoulder2Max},
		ClawOpen:      cfg.ClawOpen,
		ClawClosed:    cfg.ClawClosed,
		HomeBase:      cfg.HomeBase,
		HomeShoulder1: cfg.HomeShoulder1,
		HomeShoulder2: cfg.HomeShoulder2,
		DropBase:      cfg.DropBase,
		LiftOffset:    cfg.LiftOffset,
		BoxHeightMin:  cfg.BoxHeightMin,
		BoxHeightMax:  cfg.BoxHeightMax,
	}
}

// Claw is the range spanned by the open and closed positions.
func (c Calibration) Claw() Range {
	return Range{min(c.ClawOpen, c.ClawClosed), max(c.ClawOpen, c.ClawClosed)}
}

type Mapper struct {
	cal Calibration
}

func NewMapper(cal Calibration) *Mapper {
	return &Mapper{cal: cal}
}

func (m *Mapper) Calibration() Calibration {
	return m.cal
}

// Map converts a box center and size in frame pixels to joint angles. Horizontal
// position drives the base, vertical position drives shoulder1 (top of frame reaches
// furthest), and box height stands in for distance on shoulder2. Every angle is
// clamped to its calibrated range.
func (m *Mapper) Map(cx, cy, bw, bh float32, frameW, frameH int) JointTarget {
	c := m.cal
	fw, fh := float64(frameW), float64(frameH)

	base := mapValue(float64(cx), 0, fw, float64(c.Base.Min), float64(c.Base.Max))
	shoulder1 := mapValue(float64(cy), 0, fh, float64(c.Shoulder1.Max), float64(c.Shoulder1.Min))

	lo, hi := c.BoxHeightMin*fh, c.BoxHeightMax*fh
	h := math.Min(math.Max(float64(bh), lo), hi)
	shoulder2 := mapValue(h, lo, hi, float64(c.Shoulder2.Max), float64(c.Shoulder2.Min))

	return JointTarget{
		Base:      c.Base.clamp(round(base)),
		Shoulder1: c.Shoulder1.clamp(round(shoulder1)),
		Shoulder2: c.Shoulder2.clamp(round(shoulder2)),
		Claw:      c.Claw().clamp(c.ClawOpen),
	}
}

// mapValue linearly maps v from [inLo, inHi] to [outLo, outHi]. A degenerate input
// range maps to outLo.
func mapValue(v, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo || math.IsNaN(v) {
		return outLo
	}
	return outLo + (v-inLo)*(outHi-outLo)/(inHi-inLo)
}

func round(v float64) int {
	return int(math.Round(v))
}
