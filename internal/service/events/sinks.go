package events

import (
	"sync"

	"github.com/bmharper/ringbuffer"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
)

// LogSink writes events to the leveled logger. Per-frame counters and busy
// collisions only show up at debug level.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(logger *logger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(e Event) {
	switch e.Kind {
	case DecodedCount, SuppressedCount, ConfirmationProgress:
		s.logger.Debug("%s=%d", e.Kind, e.Value)
	case TriggerDropped:
		s.logger.Debug("Trigger dropped, sequencer busy")
	case TriggerFired:
		if e.Detection != nil {
			s.logger.Info("Trigger fired: class %d conf %.2f", e.Detection.ClassID, e.Detection.Confidence)
		}
	case SequenceStarted:
		if e.Pick != nil {
			s.logger.Info("Pick %d started: base=%d shoulder1=%d shoulder2=%d claw=%d",
				e.Sequence, e.Pick.Base, e.Pick.Shoulder1, e.Pick.Shoulder2, e.Pick.Claw)
		}
	case SequenceStep:
		s.logger.Debug("Pick %d step %s: %s", e.Sequence, e.Step, e.Message)
	case SequenceError:
		s.logger.Error("Pick %d failed at %s: %s", e.Sequence, e.Step, e.Message)
	case SequenceCompleted:
		s.logger.Info("Pick %d completed", e.Sequence)
	case SequenceHomed:
		s.logger.Info("Pick %d: arm homed", e.Sequence)
	case ActuatorTelemetry:
		s.logger.Info("Actuator: %s", e.Message)
	}
}

// History keeps the most recent non-frame events plus a running count and the last
// value of every kind.
type History struct {
	mu     sync.Mutex
	size   int
	recent ringbuffer.RingP[Event]
	counts map[Kind]uint64
	last   map[Kind]int
}

// NewHistory keeps the size most recent events.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{
		size:   size,
		recent: ringbuffer.NewRingP[Event](ringSize(size)),
		counts: make(map[Kind]uint64),
		last:   make(map[Kind]int),
	}
}

func (h *History) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[e.Kind]++
	h.last[e.Kind] = e.Value
	if !e.Kind.PerFrame() {
		h.recent.Add(e)
	}
}

// Recent returns up to limit events, newest first. limit <= 0 returns all kept.
func (h *History) Recent(limit int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := min(h.recent.Len(), h.size)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := h.recent.Len() - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.recent.Peek(i))
	}
	return out
}

func (h *History) Counts() map[Kind]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[Kind]uint64, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Last is the value carried by the most recent event of kind k.
func (h *History) Last(k Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last[k]
}

// ringSize is the smallest power of two that holds size events. RingP keeps one
// slot free.
func ringSize(size int) int {
	n := 2
	for n-1 < size {
		n <<= 1
	}
	return n
}
