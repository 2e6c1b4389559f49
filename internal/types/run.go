package types

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Run records one batch job execution.
type Run struct {
	ID          string    `json:"run_id" db:"run_id"`
	ProcessName string    `json:"process_name" db:"process_name"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	StoppedAt   time.Time `json:"stopped_at" db:"stopped_at"`
	Status      RunStatus `json:"status" db:"status"`
	Message     string    `json:"message" db:"message"`
}
