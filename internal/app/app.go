package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository/sqlite"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/routes"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/ai"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/arm"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/camera"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/storage"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/vision"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	link    *seriallink.Link
	source  camera.Source
	hub     *websocket.HubService
	buffer  *storage.BufferService
	journal *storage.Journal
	bus     *events.Bus
	manager *service.Manager
	server  *http.Server
}

// NewApp loads the configuration and builds every service. The actuator must be
// reachable: without it there is nothing to drive and startup fails.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogDirectory, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	pickRepo := sqlite.NewPickRepository(db)
	snapshotRepo := sqlite.NewSnapshotRepository(db)

	a := &App{config: cfg, logger: log, db: db}

	a.link, err = seriallink.Connect(seriallink.Options{
		Candidates: cfg.SerialPorts,
		Patterns:   cfg.SerialPatterns,
		Baud:       cfg.SerialBaud,
		Settle:     cfg.SerialSettle,
	}, log)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.link.Send(seriallink.Home()); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to home arm: %w", err)
	}

	detector, err := ai.New(cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	a.source, err = camera.Open(cfg, log)
	if err != nil {
		detector.Close()
		a.close()
		return nil, err
	}

	a.hub = websocket.NewHubService(log)
	a.buffer = storage.NewBufferService(cfg, log, snapshotRepo)
	a.journal = storage.NewJournal(pickRepo, log)
	history := events.NewHistory(cfg.EventHistory)
	a.bus = events.NewBus(events.NewLogSink(log), history, a.hub, a.journal)

	cal := arm.CalibrationFromConfig(cfg)
	sequencer := arm.NewSequencer(
		a.link,
		arm.NewMapper(cal),
		arm.NewChoreography(cal, cfg.StepDelays),
		&arm.BusyFlag{},
		cfg.HomeOnAbort,
		a.bus,
		log,
	)
	processor := vision.NewProcessor(
		vision.NewDecoder(float32(cfg.DecodeThreshold), cfg.ModelInputSize),
		float32(cfg.NmsIouThreshold),
		vision.NewGate(float32(cfg.TriggerThreshold), cfg.ConfirmFrames),
	)

	a.manager = service.NewManager(service.Services{
		Source:    a.source,
		Detector:  detector,
		Processor: processor,
		Sequencer: sequencer,
		Hub:       a.hub,
		Buffer:    a.buffer,
		Bus:       a.bus,
		History:   history,
		Link:      a.link,
		Labels:    cfg.ClassLabels,
	}, log)

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: routes.SetupRoutes(a.manager, cfg, log, pickRepo, snapshotRepo),
	}
	return a, nil
}

// Run serves until SIGINT/SIGTERM or the end of the camera stream. A pick that is
// already running is allowed to finish before the process exits.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sinks outlive the loop so the last pick is still journaled and broadcast.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	var sinks sync.WaitGroup
	for _, run := range []func(context.Context){a.hub.Run, a.buffer.Run, a.journal.Run} {
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			run(sinkCtx)
		}()
	}

	go a.link.Listen(ctx, func(line string) {
		a.bus.Publish(events.Event{Kind: events.ActuatorTelemetry, Message: line})
	})

	loopErr := make(chan error, 1)
	go func() {
		err := a.manager.Run(ctx)
		stop()
		loopErr <- err
	}()
	serveErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	fmt.Printf("🤖 Pick-and-place controller\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🔌 Actuator: %s @ %d\n", a.link.Port(), a.config.SerialBaud)
	fmt.Printf("📷 Camera: %s\n", a.config.CameraSource)
	fmt.Printf("🧠 Model: %s (%s)\n", a.config.ModelPath, a.config.InferenceBackend)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Warning("systemd notify failed: %v", err)
	} else if sent {
		a.logger.Info("Notified systemd")
	}

	<-ctx.Done()
	a.logger.Info("Shutting down")
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown: %v", err)
	}

	runErr := <-loopErr
	select {
	case err := <-serveErr:
		runErr = errors.Join(runErr, err)
	default:
	}

	a.manager.Wait()
	stopSinks()
	sinks.Wait()
	a.close()
	return runErr
}

func (a *App) close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Error("Failed to close camera: %v", err)
		}
	}
	if a.manager != nil {
		if err := a.manager.Detector.Close(); err != nil {
			a.logger.Error("Failed to close detector: %v", err)
		}
	}
	if a.link != nil {
		if err := a.link.Close(); err != nil {
			a.logger.Error("Failed to close serial port: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
