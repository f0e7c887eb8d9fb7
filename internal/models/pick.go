package models

import "time"

// Pick outcomes stored in the journal.
const (
	PickRunning   = "running"
	PickCompleted = "completed"
	PickAborted   = "aborted"
)

// Pick is one actuation sequence as recorded in the journal.
type Pick struct {
	ID         int64      `json:"id"`
	Sequence   uint64     `json:"sequence"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	FailedStep string     `json:"failed_step,omitempty"`
	Error      string     `json:"error,omitempty"`

	Confidence float32 `json:"confidence"`
	ClassID    uint    `json:"class_id"`
	Box        Rect    `json:"box"`

	Base      int `json:"base"`
	Shoulder1 int `json:"shoulder1"`
	Shoulder2 int `json:"shoulder2"`
	Claw      int `json:"claw"`
}

// PickStats summarises the journal.
type PickStats struct {
	Total     int            `json:"total"`
	PerStatus map[string]int `json:"per_status"`
	PerStep   map[string]int `json:"failures_per_step"`
}

// Snapshot is an annotated frame saved when a trigger fired.
type Snapshot struct {
	ID         int64       `json:"id"`
	Filename   string      `json:"filename"`
	Label      string      `json:"label"`
	Timestamp  time.Time   `json:"timestamp"`
	FilePath   string      `json:"filepath"`
	FileSize   int64       `json:"filesize"`
	Detections []Detection `json:"detections,omitempty"`
}
