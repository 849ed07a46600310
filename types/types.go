package types

import "time"

// TaskRequest is the body of a task call sent over the bridge
type TaskRequest struct {
	ID  string `json:"id,omitempty"`
	Arg string `json:"arg"`
}

// TaskResponse carries either the task's value or its failure
type TaskResponse struct {
	ID    string `json:"id,omitempty"`
	Task  string `json:"task"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Step statuses
const (
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// StepResult records the outcome of a single scenario step
type StepResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ScenarioResult is the outcome of one scenario run. A scenario either fully passes or fails.
type ScenarioResult struct {
	RunID    string        `json:"run_id"`
	Scenario string        `json:"scenario"`
	Success  bool          `json:"success"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// FailedStep returns the name of the first failed step, or "" when none failed
func (r *ScenarioResult) FailedStep() string {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return s.Name
		}
	}
	return ""
}
