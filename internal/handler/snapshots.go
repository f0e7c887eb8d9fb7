package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository"
)

// GetSnapshotsHandler lists trigger snapshots, newest first.
func GetSnapshotsHandler(snapshotRepo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), 24)

		snapshots, err := snapshotRepo.GetAll(limit)
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if snapshots == nil {
			snapshots = []models.Snapshot{}
		}
		writeJSON(w, snapshots, logger)
	}
}

// ViewSnapshotHandler serves the image of a recorded snapshot. Only files known to
// the database are served.
func ViewSnapshotHandler(snapshotRepo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := mux.Vars(r)["filename"]

		snapshot, err := snapshotRepo.GetByFilename(filename)
		if err != nil {
			logger.Error("Error getting snapshot %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if snapshot == nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, snapshot.FilePath)
	}
}
