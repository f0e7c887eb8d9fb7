package dto

import "github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"

// BufferedSnapshot holds an annotated trigger frame before it is flushed to disk.
type BufferedSnapshot struct {
	Timestamp  string
	Label      string
	Detections []models.Detection
	Data       []byte
}
