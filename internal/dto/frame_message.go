package dto

import (
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
)

// Message types sent to viewers over the websocket.
const (
	MessageFrame = "frame"
	MessageEvent = "event"
)

// ViewerMessage is one websocket payload. Frames carry a base64 JPEG.
type ViewerMessage struct {
	Type       string             `json:"type"`
	Image      string             `json:"image,omitempty"`
	Detections []models.Detection `json:"detections,omitempty"`
	Progress   int                `json:"progress,omitempty"`
	FPS        float64            `json:"fps,omitempty"`
	Event      *events.Event      `json:"event,omitempty"`
}
