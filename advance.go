package stageflow

import (
	"fmt"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Advance decides whether stepID may be executed against run using blueprint b and, if so, returns the run as it
// will be after the step: the current stage moved to the step's target and one StepLog appended. The provided run
// is never modified.
//
// The checks are applied in a fixed order so that a given malformed request always yields the same error:
// current stage exists, current stage is not final, step exists, step is enabled, step is legal from the current
// stage, target stage exists.
//
// The timestamp of the appended entry is now, unless now is earlier than the last entry in the log in which case the
// last entry's timestamp is reused to keep the log ordered.
func Advance(b *Blueprint, run *Run, stepID string, now time.Time) (*Run, error) {
	current, ok := b.Stage(run.CurrentStageID)
	if !ok {
		return nil, errors.Wrap(ErrCurrentStageInvalid, fmt.Sprintf("run '%s' is on stage '%s'", run.ID, run.CurrentStageID), j.MKV{
			"run_id":       run.ID,
			"blueprint_id": b.ID,
			"stage_id":     run.CurrentStageID,
		})
	}

	if current.IsFinal {
		return nil, errors.Wrap(ErrTerminalState, fmt.Sprintf("stage '%s'", current.Name), j.MKV{
			"run_id":   run.ID,
			"stage_id": current.ID,
			"step_id":  stepID,
		})
	}

	step, ok := b.Step(stepID)
	if !ok {
		return nil, errors.Wrap(ErrStepNotFound, fmt.Sprintf("step '%s'", stepID), j.MKV{
			"run_id":       run.ID,
			"blueprint_id": b.ID,
			"step_id":      stepID,
		})
	}

	if !step.Enabled {
		return nil, errors.Wrap(ErrStepDisabled, fmt.Sprintf("step '%s'", step.Name), j.MKV{
			"run_id":    run.ID,
			"step_id":   step.ID,
			"step_name": step.Name,
		})
	}

	if !step.allowedFrom(current.ID) {
		return nil, errors.Wrap(ErrIllegalTransition, fmt.Sprintf("step '%s' from stage '%s'", step.Name, current.Name), j.MKV{
			"run_id":     run.ID,
			"step_id":    step.ID,
			"step_name":  step.Name,
			"stage_id":   current.ID,
			"stage_name": current.Name,
		})
	}

	target, ok := b.Stage(step.ToStage)
	if !ok {
		return nil, errors.Wrap(ErrTargetStageMissing, fmt.Sprintf("step '%s' targets stage '%s'", step.Name, step.ToStage), j.MKV{
			"run_id":       run.ID,
			"blueprint_id": b.ID,
			"step_id":      step.ID,
			"stage_id":     step.ToStage,
		})
	}

	now = now.UTC()
	if n := len(run.Log); n > 0 && now.Before(run.Log[n-1].Timestamp) {
		now = run.Log[n-1].Timestamp
	}

	next := run.Clone()
	next.CurrentStageID = target.ID
	next.Log = append(next.Log, StepLog{
		StepID:    step.ID,
		Timestamp: now,
	})

	return next, nil
}

// executable reports whether step would be accepted by Advance from the stage the run currently occupies.
func executable(b *Blueprint, current Stage, step Step) bool {
	if current.IsFinal || !step.Enabled || !step.allowedFrom(current.ID) {
		return false
	}

	_, ok := b.Stage(step.ToStage)
	return ok
}
