package vision

import (
	"fmt"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

type GateState int

const (
	GateIdle GateState = iota
	GateAccumulating
	GateReady
)

func (s GateState) String() string {
	switch s {
	case GateIdle:
		return "idle"
	case GateAccumulating:
		return "accumulating"
	case GateReady:
		return "ready"
	}
	return fmt.Sprintf("GateState(%d)", int(s))
}

// Gate debounces triggers: it fires once after confirmFrames consecutive qualifying
// frames and starts over. It is owned by the detection loop and is not safe for
// concurrent use.
type Gate struct {
	threshold     float32
	confirmFrames int
	count         int
}

func NewGate(triggerThreshold float32, confirmFrames int) *Gate {
	if confirmFrames < 1 {
		confirmFrames = 1
	}
	return &Gate{threshold: triggerThreshold, confirmFrames: confirmFrames}
}

// Observe feeds one frame. best is the strongest surviving detection or nil.
// A frame qualifies when best beats the trigger threshold and no sequence is busy;
// anything else resets the streak. The second result is true exactly on the frame
// that completes a streak, and the first then carries that frame's detection.
func (g *Gate) Observe(best *models.Detection, busy bool) (models.Detection, bool) {
	if best == nil || busy || !(best.Confidence > g.threshold) {
		g.count = 0
		return models.Detection{}, false
	}

	g.count++
	if g.count < g.confirmFrames {
		return models.Detection{}, false
	}

	g.count = 0
	return *best, true
}

// Count is the length of the current streak.
func (g *Gate) Count() int {
	return g.count
}

// ConfirmFrames is the streak length that fires a trigger.
func (g *Gate) ConfirmFrames() int {
	return g.confirmFrames
}

// State reports Idle or Accumulating. Ready is never observed from outside since
// the gate resets on the frame that fires.
func (g *Gate) State() GateState {
	if g.count == 0 {
		return GateIdle
	}
	return GateAccumulating
}

func (g *Gate) Reset() {
	g.count = 0
}
