package domain

import "time"

// RunStatus is the lifecycle state reported for a target.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunEvent reports the progress of one target within a pipeline run.
type RunEvent struct {
	RunID           string    `json:"run_id"`
	Target          string    `json:"target"`
	Status          RunStatus `json:"status"`
	ExitCode        int       `json:"exit_code"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Error           string    `json:"error,omitempty"`
	At              time.Time `json:"at"`
}
