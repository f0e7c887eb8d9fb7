package arm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
)

type fakeLink struct {
	mu     sync.Mutex
	sent   []seriallink.Command
	failAt int           // 1-based send that fails, 0 never
	gate   chan struct{} // when set, every send waits for it to close
}

func (l *fakeLink) Send(cmd seriallink.Command) error {
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, cmd)
	if l.failAt == len(l.sent) {
		return errors.New("device unplugged")
	}
	return nil
}

func (l *fakeLink) commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sent))
	for i, c := range l.sent {
		out[i] = c.String()
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) find(k events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == k {
			return e, true
		}
	}
	return events.Event{}, false
}

func newTestSequencer(link Sender, homeOnAbort bool, sink events.Sink) (*Sequencer, *BusyFlag) {
	cal := testCalibration()
	busy := &BusyFlag{}
	s := NewSequencer(link, NewMapper(cal), NewChoreography(cal, []time.Duration{time.Second}), busy, homeOnAbort, sink, logger.NewNop())
	s.SetSleep(func(time.Duration) {})
	return s, busy
}

func centerDetection() models.Detection {
	return models.Detection{Box: models.Rect{X1: 270, Y1: 190, X2: 370, Y2: 290}, Confidence: 0.81}
}

func TestSequencer_RunsFullChoreography(t *testing.T) {
	link := &fakeLink{}
	rec := &recorder{}
	s, busy := newTestSequencer(link, true, rec)

	var holds []time.Duration
	s.SetSleep(func(d time.Duration) { holds = append(holds, d) })

	require.NoError(t, s.RunPick(640, 480, centerDetection()))

	assert.Equal(t, []string{
		"M,0,20,20,60\n",
		"M,90,20,20,60\n",
		"M,90,90,115,60\n",
		"M,90,90,115,10\n",
		"M,90,70,115,10\n",
		"M,150,20,20,10\n",
		"M,150,20,20,60\n",
		"HOME\n",
	}, link.commands())
	assert.Len(t, holds, 8)
	assert.Equal(t, time.Second, holds[0])
	assert.False(t, busy.Busy())

	kinds := rec.kinds()
	assert.Equal(t, events.SequenceStarted, kinds[0])
	assert.Equal(t, events.SequenceCompleted, kinds[len(kinds)-1])
	assert.Contains(t, kinds, events.SequenceHomed)

	done, ok := rec.find(events.SequenceCompleted)
	require.True(t, ok)
	require.NotNil(t, done.Pick)
	assert.Equal(t, models.PickCompleted, done.Pick.Status)
	assert.Equal(t, 90, done.Pick.Base)
	assert.NotNil(t, done.Pick.FinishedAt)
}

func TestSequencer_BusyGateAdmitsOneSequence(t *testing.T) {
	link := &fakeLink{gate: make(chan struct{})}
	rec := &recorder{}
	s, busy := newTestSequencer(link, true, rec)

	first := make(chan error, 1)
	go func() { first <- s.RunPick(640, 480, centerDetection()) }()
	require.Eventually(t, busy.Busy, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	var mu sync.Mutex
	busyErrs := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errors.Is(s.RunPick(640, 480, centerDetection()), ErrBusy) {
				mu.Lock()
				busyErrs++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, busyErrs)

	close(link.gate)
	require.NoError(t, <-first)
	assert.Len(t, link.commands(), 8, "only the first sequence reached the link")
	assert.False(t, busy.Busy())

	dropped := 0
	for _, k := range rec.kinds() {
		if k == events.TriggerDropped {
			dropped++
		}
	}
	assert.Equal(t, 20, dropped)
}

func TestSequencer_AbortReleasesBusyAndHomes(t *testing.T) {
	link := &fakeLink{failAt: 4}
	rec := &recorder{}
	s, busy := newTestSequencer(link, true, rec)

	err := s.RunPick(640, 480, centerDetection())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "grip", stepErr.Step)
	assert.False(t, busy.Busy())

	cmds := link.commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, "HOME\n", cmds[4], "one best-effort HOME after the failed step")

	failed, ok := rec.find(events.SequenceError)
	require.True(t, ok)
	assert.Equal(t, "grip", failed.Step)
	assert.Equal(t, models.PickAborted, failed.Pick.Status)
	assert.Equal(t, "grip", failed.Pick.FailedStep)

	homed, ok := rec.find(events.SequenceHomed)
	require.True(t, ok)
	assert.Equal(t, "abort", homed.Step)

	// The arm is usable again.
	link.failAt = 0
	require.NoError(t, s.RunPick(640, 480, centerDetection()))
}

func TestSequencer_AbortWithoutHome(t *testing.T) {
	link := &fakeLink{failAt: 1}
	s, busy := newTestSequencer(link, false, nil)

	err := s.RunPick(640, 480, centerDetection())
	assert.Error(t, err)
	assert.Len(t, link.commands(), 1)
	assert.False(t, busy.Busy())
}

func TestSequencer_SequenceNumbersIncrease(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestSequencer(&fakeLink{}, true, rec)

	require.NoError(t, s.RunPick(640, 480, centerDetection()))
	require.NoError(t, s.RunPick(640, 480, centerDetection()))

	var seqs []uint64
	for _, e := range rec.events {
		if e.Kind == events.SequenceStarted {
			seqs = append(seqs, e.Sequence)
		}
	}
	assert.Equal(t, []uint64{1, 2}, seqs)
}
