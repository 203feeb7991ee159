package stageflow

import "time"

// Run is a live instance of a Blueprint. It holds the blueprint's ID rather than the blueprint itself so that every
// operation resolves the blueprint that is currently registered under that ID.
type Run struct {
	ID             string    `json:"id"`
	BlueprintID    string    `json:"blueprint_id"`
	CurrentStageID string    `json:"current_stage_id"`
	Log            []StepLog `json:"log"`
}

// StepLog records a single successful step execution.
type StepLog struct {
	StepID    string    `json:"step_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Revision is the number of steps that have been applied to the run. The log is append-only and every successful
// step appends exactly one entry, which makes the length a strictly increasing version of the run.
func (r *Run) Revision() int {
	return len(r.Log)
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}

	c := *r
	c.Log = make([]StepLog, len(r.Log))
	copy(c.Log, r.Log)

	return &c
}
