package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository"
)

// GetPicksHandler returns the pick journal, newest first.
// Query: limit (default 50), offset, status (running, completed, aborted).
func GetPicksHandler(pickRepo repository.PickRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := &dto.PickFilter{
			Status: q.Get("status"),
			Limit:  atoiDefault(q.Get("limit"), 50),
			Offset: atoiDefault(q.Get("offset"), 0),
		}
		switch filter.Status {
		case "", models.PickRunning, models.PickCompleted, models.PickAborted:
		default:
			http.Error(w, "Unknown status: "+filter.Status, http.StatusBadRequest)
			return
		}

		picks, err := pickRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying picks from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if picks == nil {
			picks = []models.Pick{}
		}
		writeJSON(w, picks, logger)
	}
}

// GetPickHandler returns a single pick by its {id}.
func GetPickHandler(pickRepo repository.PickRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			http.Error(w, "Invalid pick id", http.StatusBadRequest)
			return
		}

		pick, err := pickRepo.GetByID(id)
		if err != nil {
			logger.Error("Error getting pick %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if pick == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, pick, logger)
	}
}

// GetPickStatsHandler returns outcome counts and failures per step.
func GetPickStatsHandler(pickRepo repository.PickRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := pickRepo.GetStats()
		if err != nil {
			logger.Error("Error getting pick stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats, logger)
	}
}
