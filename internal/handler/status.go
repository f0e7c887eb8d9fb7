package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
)

// StatusReporter is satisfied by the detection loop manager.
type StatusReporter interface {
	Status() dto.Status
}

// StatusHandler returns the loop and actuator state.
func StatusHandler(reporter StatusReporter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reporter.Status(), logger)
	}
}

// EventsHandler returns recent non-frame events, newest first.
func EventsHandler(history *events.History, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), 50)
		writeJSON(w, history.Recent(limit), logger)
	}
}

func writeJSON(w http.ResponseWriter, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
