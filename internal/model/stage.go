package model

import "time"

// StageState is the lifecycle state of one pipeline stage within a single
// run. Durable resume state lives in the workspace cache, not here — a
// StageRecord is process-wide, for the lifetime of one run only.
type StageState string

const (
	StagePending StageState = "Pending"
	StageRunning StageState = "Running"
	StageDone    StageState = "Done"
	StageFailed  StageState = "Failed"
	StageSkipped StageState = "Skipped"
)

// StageRecord tracks one of the seven top-level stages for the duration of
// a run.
type StageRecord struct {
	Name        string     `json:"name"`
	State       StageState `json:"state"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	EndedAt     time.Time  `json:"ended_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []string   `json:"artifacts,omitempty"`
	ProgressPct float64    `json:"progress_pct"`
	Cached      bool       `json:"cached"`
}
