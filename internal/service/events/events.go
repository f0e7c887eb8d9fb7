package events

import (
	"sync"
	"time"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

type Kind string

const (
	DecodedCount         Kind = "decoded_count"
	SuppressedCount      Kind = "suppressed_count"
	ConfirmationProgress Kind = "confirmation_progress"
	TriggerFired         Kind = "trigger_fired"
	TriggerDropped       Kind = "trigger_dropped"
	SequenceStarted      Kind = "sequence_started"
	SequenceStep         Kind = "sequence_step"
	SequenceError        Kind = "sequence_error"
	SequenceCompleted    Kind = "sequence_completed"
	SequenceHomed        Kind = "sequence_homed"
	ActuatorTelemetry    Kind = "actuator_telemetry"
)

// PerFrame reports whether the kind is emitted for every processed frame.
func (k Kind) PerFrame() bool {
	switch k {
	case DecodedCount, SuppressedCount, ConfirmationProgress:
		return true
	}
	return false
}

type Event struct {
	Kind      Kind              `json:"kind"`
	Time      time.Time         `json:"time"`
	Sequence  uint64            `json:"sequence,omitempty"`
	Step      string            `json:"step,omitempty"`
	Value     int               `json:"value"`
	Detection *models.Detection `json:"detection,omitempty"`
	Pick      *models.Pick      `json:"pick,omitempty"`
	Message   string            `json:"message,omitempty"`
}

type Sink interface {
	Publish(e Event)
}

type SinkFunc func(e Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Bus fans events out to its sinks in registration order. Sinks must not block.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
	now   func() time.Time
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks, now: time.Now}
}

func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Publish(e)
	}
}
