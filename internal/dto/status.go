package dto

// Status is the /api/status payload.
type Status struct {
	Busy          bool              `json:"busy"`
	Gate          string            `json:"gate"`
	Progress      int               `json:"progress"`
	ConfirmFrames int               `json:"confirm_frames"`
	SerialPort    string            `json:"serial_port"`
	Viewers       int               `json:"viewers"`
	Counters      map[string]uint64 `json:"counters"`
	Uptime        string            `json:"uptime"`
}
