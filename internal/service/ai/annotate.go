package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

var (
	boxColor     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	triggerColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Label maps a class id to its configured name.
func Label(labels []string, classID uint) string {
	if int(classID) < len(labels) && labels[classID] != "" {
		return labels[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// Caption is the text drawn above a box.
func Caption(labels []string, det models.Detection) string {
	return fmt.Sprintf("%s %.2f", Label(labels, det.ClassID), det.Confidence)
}

// Annotate draws the surviving boxes, their captions, the confirmation progress and
// the frame rate onto frame. The first box is the candidate the gate is tracking.
func Annotate(frame *gocv.Mat, dets []models.Detection, labels []string, progress, confirmFrames int, fps float64) error {
	for i, det := range dets {
		c := boxColor
		if i == 0 && progress > 0 {
			c = triggerColor
		}

		rect := image.Rect(int(det.Box.X1), int(det.Box.Y1), int(det.Box.X2), int(det.Box.Y2))
		if err := gocv.Rectangle(frame, rect, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		pt := image.Pt(rect.Min.X, max(rect.Min.Y-5, 12))
		if err := gocv.PutText(frame, Caption(labels, det), pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}

	status := fmt.Sprintf("FPS %.1f  confirm %d/%d", fps, progress, confirmFrames)
	if err := gocv.PutText(frame, status, image.Pt(10, 20), gocv.FontHersheySimplex, 0.6, textColor, 2); err != nil {
		return fmt.Errorf("failed to draw text: %v", err)
	}
	return nil
}

// EncodeJPEG returns a copy of the frame encoded as JPEG.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
