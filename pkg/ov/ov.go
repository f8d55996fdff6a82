package ov

import "time"

// Label is a gesture event posted by the experiment UI.
type Label struct {
	PID          string `json:"pid" binding:"required"`
	Gesture      string `json:"gesture" binding:"required"`
	GestureIndex int    `json:"gesture_index"`
	// Timestamp is RFC 3339 or "2006-01-02 15:04:05.000000" local time;
	// empty means the time the label was received.
	Timestamp string `json:"timestamp"`
}

type LabelEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Gesture      string    `json:"gesture"`
	GestureIndex int       `json:"gesture_index"`
	PID          string    `json:"pid"`
}

type Health struct {
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	CPU       float64   `json:"cpu"`
	MemoryPct float64   `json:"memoryPercent"`
	DiskFree  string    `json:"diskFree"`
}
