package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/ai"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/arm"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/camera"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/storage"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/vision"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/websocket"
)

// fpsSmoothing weights the newest frame in the frame-rate moving average.
const fpsSmoothing = 0.1

// PortReporter names the actuator port in use.
type PortReporter interface {
	Port() string
}

// Services are the collaborators of the detection loop.
type Services struct {
	Source    camera.Source
	Detector  ai.Detector
	Processor *vision.Processor
	Sequencer *arm.Sequencer
	Hub       *websocket.HubService
	Buffer    *storage.BufferService
	Bus       *events.Bus
	History   *events.History
	Link      PortReporter
	Labels    []string
}

// Manager runs the single detection loop: one frame at a time, in arrival order.
// Picks run on their own goroutine and never hold up the loop.
type Manager struct {
	Services
	logger  *logger.Logger
	started time.Time

	mu       sync.RWMutex
	fps      float64
	progress int
	gate     vision.GateState

	picks sync.WaitGroup
}

func NewManager(s Services, logger *logger.Logger) *Manager {
	return &Manager{
		Services: s,
		logger:   logger,
		started:  time.Now(),
	}
}

// Run processes frames until the source ends or ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("Detection loop started (input %d, confirm %d frames)",
		m.Detector.InputSize(), m.Processor.Gate().ConfirmFrames())
	last := time.Now()

	for {
		frame, err := m.Source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				m.logger.Info("Camera stream ended")
				return nil
			}
			return err
		}

		now := time.Now()
		m.updateFPS(now.Sub(last))
		last = now

		m.handleFrame(frame)
		frame.Close()
	}
}

func (m *Manager) handleFrame(frame gocv.Mat) {
	w, h := frame.Cols(), frame.Rows()

	tensor, err := m.Detector.Infer(frame)
	if err != nil {
		m.logger.Error("Inference failed, skipping frame: %v", err)
		return
	}

	res := m.Processor.Process(tensor, w, h, m.Sequencer.Busy())
	m.handleResult(res, w, h)

	if m.Hub.GetClientCount() == 0 && res.Trigger == nil {
		return
	}

	if err := ai.Annotate(&frame, res.Kept, m.Labels, res.Progress, m.Processor.Gate().ConfirmFrames(), m.FPS()); err != nil {
		m.logger.Error("Failed to annotate frame: %v", err)
	}
	jpeg, err := ai.EncodeJPEG(frame)
	if err != nil {
		m.logger.Error("%v", err)
		return
	}

	if res.Trigger != nil {
		m.Buffer.Add(jpeg, ai.Label(m.Labels, res.Trigger.ClassID), res.Kept)
	}
	m.SendToViewers(jpeg, res)
}

// handleResult publishes the frame's counters and dispatches a confirmed trigger.
func (m *Manager) handleResult(res vision.FrameResult, frameW, frameH int) {
	if res.DecodeErr != nil {
		m.logger.Debug("Decode: %v", res.DecodeErr)
	}

	m.mu.Lock()
	m.progress = res.Progress
	m.gate = m.Processor.Gate().State()
	m.mu.Unlock()

	m.Bus.Publish(events.Event{Kind: events.DecodedCount, Value: res.Decoded})
	m.Bus.Publish(events.Event{Kind: events.SuppressedCount, Value: res.Suppressed()})
	m.Bus.Publish(events.Event{Kind: events.ConfirmationProgress, Value: res.Progress})

	if res.Trigger == nil {
		return
	}
	det := *res.Trigger
	m.Bus.Publish(events.Event{Kind: events.TriggerFired, Detection: &det})
	m.dispatch(det, frameW, frameH)
}

func (m *Manager) dispatch(det models.Detection, frameW, frameH int) {
	m.picks.Add(1)
	go func() {
		defer m.picks.Done()
		// Failures are already logged and published by the sequencer.
		_ = m.Sequencer.RunPick(frameW, frameH, det)
	}()
}

// Wait blocks until dispatched picks have finished.
func (m *Manager) Wait() {
	m.picks.Wait()
}

// SendToViewers broadcasts an annotated frame.
func (m *Manager) SendToViewers(jpeg []byte, res vision.FrameResult) {
	msg := dto.ViewerMessage{
		Type:       dto.MessageFrame,
		Image:      base64.StdEncoding.EncodeToString(jpeg),
		Detections: res.Kept,
		Progress:   res.Progress,
		FPS:        m.FPS(),
	}
	if err := m.Hub.BroadcastJSON(msg); err != nil {
		m.logger.Error("Error encoding frame message: %v", err)
	}
}

func (m *Manager) updateFPS(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	current := 1 / elapsed.Seconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fps == 0 {
		m.fps = current
		return
	}
	m.fps = fpsSmoothing*current + (1-fpsSmoothing)*m.fps
}

func (m *Manager) FPS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fps
}

// Status reports the loop and actuator state.
func (m *Manager) Status() dto.Status {
	m.mu.RLock()
	progress, gate := m.progress, m.gate
	m.mu.RUnlock()

	counters := make(map[string]uint64)
	for k, v := range m.History.Counts() {
		counters[string(k)] = v
	}

	port := ""
	if m.Link != nil {
		port = m.Link.Port()
	}

	return dto.Status{
		Busy:          m.Sequencer.Busy(),
		Gate:          gate.String(),
		Progress:      progress,
		ConfirmFrames: m.Processor.Gate().ConfirmFrames(),
		SerialPort:    port,
		Viewers:       m.Hub.GetClientCount(),
		Counters:      counters,
		Uptime:        time.Since(m.started).Round(time.Second).String(),
	}
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.Hub
}

func (m *Manager) GetHistory() *events.History {
	return m.History
}
