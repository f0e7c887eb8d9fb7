package arm

import (
	"time"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
)

// Step is one choreography entry: a single command followed by a fixed hold while
// the servos settle. Nothing is read back; timing is open loop.
type Step struct {
	Name string
	Hold time.Duration
	pose func(t JointTarget) JointTarget // nil sends HOME
}

// Command builds the step's wire command for a target.
func (s Step) Command(t JointTarget) seriallink.Command {
	if s.pose == nil {
		return seriallink.Home()
	}
	p := s.pose(t)
	return seriallink.Move(p.Base, p.Shoulder1, p.Shoulder2, p.Claw)
}

// StepNames is the fixed choreography order.
var StepNames = []string{"pregrasp", "approach", "descend", "grip", "lift", "transport", "release", "home"}

// servoTravel is the widest angle any joint accepts.
var servoTravel = Range{0, 180}

// NewChoreography builds the pick-and-place steps. holds is indexed like StepNames;
// missing entries hold for zero. The fixed poses are clamped to their joint ranges
// like mapped targets are.
func NewChoreography(c Calibration, holds []time.Duration) []Step {
	open, closed := servoTravel.clamp(c.ClawOpen), servoTravel.clamp(c.ClawClosed)
	homeBase, dropBase := c.Base.clamp(c.HomeBase), c.Base.clamp(c.DropBase)
	homeS1, homeS2 := c.Shoulder1.clamp(c.HomeShoulder1), c.Shoulder2.clamp(c.HomeShoulder2)
	poses := []func(t JointTarget) JointTarget{
		func(JointTarget) JointTarget {
			return JointTarget{homeBase, homeS1, homeS2, open}
		},
		func(t JointTarget) JointTarget {
			return JointTarget{t.Base, homeS1, homeS2, open}
		},
		func(t JointTarget) JointTarget {
			return JointTarget{t.Base, t.Shoulder1, t.Shoulder2, open}
		},
		func(t JointTarget) JointTarget {
			return JointTarget{t.Base, t.Shoulder1, t.Shoulder2, closed}
		},
		func(t JointTarget) JointTarget {
			return JointTarget{t.Base, max(t.Shoulder1-c.LiftOffset, c.Shoulder1.Min), t.Shoulder2, closed}
		},
		func(JointTarget) JointTarget {
			return JointTarget{dropBase, homeS1, homeS2, closed}
		},
		func(JointTarget) JointTarget {
			return JointTarget{dropBase, homeS1, homeS2, open}
		},
		nil,
	}

	steps := make([]Step, len(StepNames))
	for i, name := range StepNames {
		steps[i] = Step{Name: name, pose: poses[i]}
		if i < len(holds) {
			steps[i].Hold = holds[i]
		}
	}
	return steps
}
