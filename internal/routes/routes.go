package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/handler"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/middleware"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the viewer websocket, the read-only API, the log endpoints
// and static file serving.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	pickRepo repository.PickRepository, snapshotRepo repository.SnapshotRepository) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	// Static files
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// API endpoints
	api := r.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/view", handler.ViewWebsocketHandler(manager.GetWebsocketService(), logger))
	api.HandleFunc("/status", handler.StatusHandler(manager, logger))
	api.HandleFunc("/events", handler.EventsHandler(manager.GetHistory(), logger))
	api.HandleFunc("/picks", handler.GetPicksHandler(pickRepo, logger))
	api.HandleFunc("/picks/stats", handler.GetPickStatsHandler(pickRepo, logger))
	api.HandleFunc("/picks/{id:[0-9]+}", handler.GetPickHandler(pickRepo, logger))
	api.HandleFunc("/snapshots", handler.GetSnapshotsHandler(snapshotRepo, logger))
	api.HandleFunc("/snapshots/{filename}", handler.ViewSnapshotHandler(snapshotRepo, logger))

	// Log endpoints
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(cfg.LogDirectory)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	r.PathPrefix("/").HandlerFunc(dynamicHTMLHandler).Methods(http.MethodGet)

	return r
}
