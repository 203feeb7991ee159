package stageflow

import (
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Validate checks that a candidate blueprint is structurally sound enough to be executed. The checks run in a fixed
// order and the first one to fail determines the returned error, as the later checks assume the earlier ones hold:
//
//  1. at least one stage
//  2. exactly one initial stage
//  3. unique stage ids
//  4. unique step ids (a nil step list is valid)
//  5. every step's from and to stages exist in the blueprint
//
// Reachability, outgoing steps on final stages and references to disabled stages or steps are deliberately not
// checked. Validate has no side effects.
func Validate(b *Blueprint) error {
	if b == nil {
		return errors.Wrap(ErrInvalidBlueprint, "")
	}

	meta := j.MKV{"blueprint_id": b.ID}

	if len(b.Stages) == 0 {
		return errors.Wrap(ErrNoStages, "", meta)
	}

	var initial int
	for _, s := range b.Stages {
		if s.IsInitial {
			initial++
		}
	}

	if initial != 1 {
		return errors.Wrap(ErrInitialStageCount, "", j.MKV{
			"blueprint_id":   b.ID,
			"initial_stages": initial,
		})
	}

	stageIDs := make(map[string]bool, len(b.Stages))
	for _, s := range b.Stages {
		if stageIDs[s.ID] {
			return errors.Wrap(ErrDuplicateStageID, fmt.Sprintf("stage '%s'", s.ID), j.MKV{
				"blueprint_id": b.ID,
				"stage_id":     s.ID,
			})
		}

		stageIDs[s.ID] = true
	}

	stepIDs := make(map[string]bool, len(b.Steps))
	for _, s := range b.Steps {
		if stepIDs[s.ID] {
			return errors.Wrap(ErrDuplicateStepID, fmt.Sprintf("step '%s'", s.ID), j.MKV{
				"blueprint_id": b.ID,
				"step_id":      s.ID,
			})
		}

		stepIDs[s.ID] = true
	}

	for _, s := range b.Steps {
		if referencesKnownStages(s, stageIDs) {
			continue
		}

		return errors.Wrap(ErrUnknownStageReference, fmt.Sprintf("step '%s' references unknown stage(s)", s.Name), j.MKV{
			"blueprint_id": b.ID,
			"step_id":      s.ID,
			"step_name":    s.Name,
		})
	}

	return nil
}

func referencesKnownStages(s Step, stageIDs map[string]bool) bool {
	if !stageIDs[s.ToStage] {
		return false
	}

	for _, from := range s.FromStages {
		if !stageIDs[from] {
			return false
		}
	}

	return true
}
