package analyses

import "time"

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusFailed
}

// Input is one piece of effective input that every phase runs over: a
// selected chunk, or the whole text with an empty ChunkID.
type Input struct {
	ChunkID   string
	Order     int
	Text      string
	WordCount int
}

// Unit is one (phase, input) pair of work.
type Unit struct {
	Index      int
	Phase      Phase
	PhaseIndex int
	PhaseCount int
	Input      Input
	InputIndex int
	InputCount int
}

// Snapshot is a read-only view of a job for the presentation layer.
type Snapshot struct {
	Status               Status       `json:"status"`
	AnalysisType         AnalysisType `json:"analysisType"`
	Provider             string       `json:"provider"`
	Phase                Phase        `json:"phase,omitempty"`
	PhaseIndex           int          `json:"phaseIndex"`
	PhaseCount           int          `json:"phaseCount"`
	UnitsProcessed       int          `json:"unitsProcessed"`
	UnitsTotal           int          `json:"unitsTotal"`
	Progress             float64      `json:"progress"`
	StartedAt            *time.Time   `json:"startedAt,omitempty"`
	EstimatedRemainingMs *int64       `json:"estimatedRemainingMs,omitempty"`
	EstimatedRemaining   string       `json:"estimatedRemaining"`
	FailureReason        string       `json:"failureReason,omitempty"`
}
