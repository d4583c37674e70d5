package domain

import "time"

// Run describes one pipeline execution for history and notifications.
type Run struct {
	ID        string
	StartedAt time.Time
	Output    string
	Total     int
	Failures  int
	Status    RunStatus
}

// RunStatus enumerates the milestones a run passes through.
type RunStatus string

const (
	RunStarted  RunStatus = "started"
	RunChecked  RunStatus = "checked"
	RunWritten  RunStatus = "written"
	RunNotified RunStatus = "notified"
)
