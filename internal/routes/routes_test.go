package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/arm"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/vision"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/websocket"
)

type nopLink struct{}

func (nopLink) Send(seriallink.Command) error { return nil }
func (nopLink) Port() string                  { return "/dev/ttyACM0" }

type stubPicks struct{ stats bool }

func (s *stubPicks) Insert(p *models.Pick) (int64, error)          { return 0, nil }
func (s *stubPicks) Finish(p *models.Pick) error                   { return nil }
func (s *stubPicks) GetByID(id int64) (*models.Pick, error)        { return &models.Pick{ID: id}, nil }
func (s *stubPicks) GetAll(*dto.PickFilter) ([]models.Pick, error) { return nil, nil }
func (s *stubPicks) GetStats() (*models.PickStats, error) {
	s.stats = true
	return &models.PickStats{}, nil
}

type stubSnapshots struct{}

func (stubSnapshots) Insert(*models.Snapshot) (int64, error)         { return 0, nil }
func (stubSnapshots) GetByFilename(string) (*models.Snapshot, error) { return nil, nil }
func (stubSnapshots) GetAll(int) ([]models.Snapshot, error)          { return nil, nil }
func (stubSnapshots) Delete(int64) error                             { return nil }

func setupRouter(t *testing.T) (http.Handler, *stubPicks) {
	t.Helper()
	log := logger.NewNop()
	cfg := config.Load()
	cal := arm.CalibrationFromConfig(cfg)
	history := events.NewHistory(10)
	bus := events.NewBus(history)

	manager := service.NewManager(service.Services{
		Processor: vision.NewProcessor(vision.NewDecoder(0.3, 640), 0.45, vision.NewGate(0.6, 3)),
		Sequencer: arm.NewSequencer(nopLink{}, arm.NewMapper(cal), arm.NewChoreography(cal, nil), &arm.BusyFlag{}, true, bus, log),
		Hub:       websocket.NewHubService(log),
		Bus:       bus,
		History:   history,
		Link:      nopLink{},
	}, log)

	picks := &stubPicks{}
	return SetupRoutes(manager, cfg, log, picks, stubSnapshots{}), picks
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSetupRoutes_API(t *testing.T) {
	router, picks := setupRouter(t)

	rec := do(router, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status dto.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "/dev/ttyACM0", status.SerialPort)
	assert.Equal(t, 3, status.ConfirmFrames)

	rec = do(router, http.MethodGet, "/api/picks/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, picks.stats, "stats must not be routed as a pick id")

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/picks/12").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/events").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/snapshots/missing.jpg").Code)
}

func TestSetupRoutes_Methods(t *testing.T) {
	router, _ := setupRouter(t)

	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPost, "/logs/info").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPost, "/api/status").Code)
}

func TestDynamicHTMLHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "index.html"), []byte("<h1>arm</h1>"), 0644))
	t.Chdir(dir)

	router, _ := setupRouter(t)

	rec := do(router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arm")

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/settings").Code)
}
