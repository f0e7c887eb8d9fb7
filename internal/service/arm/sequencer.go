package arm

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
)

// ErrBusy is returned by RunPick when another sequence holds the arm.
var ErrBusy = errors.New("sequencer busy")

// Sender delivers commands to the actuator.
type Sender interface {
	Send(cmd seriallink.Command) error
}

// StepError reports the choreography step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Sequencer struct {
	link        Sender
	mapper      *Mapper
	steps       []Step
	busy        *BusyFlag
	homeOnAbort bool
	sink        events.Sink
	logger      *logger.Logger
	sleep       func(time.Duration)
	sequence    atomic.Uint64
}

func NewSequencer(link Sender, mapper *Mapper, steps []Step, busy *BusyFlag, homeOnAbort bool, sink events.Sink, logger *logger.Logger) *Sequencer {
	if sink == nil {
		sink = events.Discard
	}
	return &Sequencer{
		link:        link,
		mapper:      mapper,
		steps:       steps,
		busy:        busy,
		homeOnAbort: homeOnAbort,
		sink:        sink,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// SetSleep replaces the hold timer.
func (s *Sequencer) SetSleep(sleep func(time.Duration)) {
	s.sleep = sleep
}

func (s *Sequencer) Busy() bool {
	return s.busy.Busy()
}

// RunPick maps the detection to a joint target and runs the full choreography. It
// returns ErrBusy without touching the link when a sequence is already running, and
// a *StepError when a step fails. The busy flag is released on every path.
func (s *Sequencer) RunPick(frameW, frameH int, det models.Detection) error {
	if !s.busy.TryAcquire() {
		s.sink.Publish(events.Event{Kind: events.TriggerDropped, Detection: &det})
		return ErrBusy
	}
	defer s.busy.Release()

	id := s.sequence.Add(1)
	cx, cy := det.Box.Center()
	target := s.mapper.Map(cx, cy, det.Box.Width(), det.Box.Height(), frameW, frameH)

	pick := models.Pick{
		Sequence:   id,
		StartedAt:  time.Now(),
		Status:     models.PickRunning,
		Confidence: det.Confidence,
		ClassID:    det.ClassID,
		Box:        det.Box,
		Base:       target.Base,
		Shoulder1:  target.Shoulder1,
		Shoulder2:  target.Shoulder2,
		Claw:       target.Claw,
	}
	s.publishPick(events.SequenceStarted, pick, "")

	err := s.run(id, target)
	finished := time.Now()
	pick.FinishedAt = &finished

	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			pick.FailedStep = stepErr.Step
		}
		pick.Status = models.PickAborted
		pick.Error = err.Error()
		s.publishPick(events.SequenceError, pick, err.Error())
		s.abort(id)
		return err
	}

	pick.Status = models.PickCompleted
	s.publishPick(events.SequenceCompleted, pick, "")
	return nil
}

func (s *Sequencer) run(id uint64, target JointTarget) error {
	for _, step := range s.steps {
		cmd := step.Command(target)
		if err := s.link.Send(cmd); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}
		s.sink.Publish(events.Event{
			Kind:     events.SequenceStep,
			Sequence: id,
			Step:     step.Name,
			Message:  strings.TrimSpace(cmd.String()),
		})
		if cmd.Home {
			s.sink.Publish(events.Event{Kind: events.SequenceHomed, Sequence: id, Step: step.Name})
		}
		s.sleep(step.Hold)
	}
	return nil
}

// abort makes one attempt to park the arm after a failed step.
func (s *Sequencer) abort(id uint64) {
	if !s.homeOnAbort {
		return
	}
	if err := s.link.Send(seriallink.Home()); err != nil {
		s.logger.Warning("Pick %d: HOME after abort failed: %v", id, err)
		return
	}
	s.sink.Publish(events.Event{Kind: events.SequenceHomed, Sequence: id, Step: "abort"})
}

func (s *Sequencer) publishPick(kind events.Kind, pick models.Pick, msg string) {
	s.sink.Publish(events.Event{
		Kind:     kind,
		Sequence: pick.Sequence,
		Step:     pick.FailedStep,
		Pick:     &pick,
		Message:  msg,
	})
}
