package stageflow

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Blueprint validation failures. Exactly one is reported per rejected blueprint, following the order in which
// Validate applies its checks.
var (
	ErrNoStages              = errors.New("a process must have at least one stage", j.C("ERR_4f1d0c3a9b2e7d61"))
	ErrInitialStageCount     = errors.New("a process must have exactly one initial stage", j.C("ERR_b83e5a0f62c4d917"))
	ErrDuplicateStageID      = errors.New("stage ids must be unique", j.C("ERR_0c9a7e21d4f58b36"))
	ErrDuplicateStepID       = errors.New("step ids must be unique", j.C("ERR_e5d2b8147a3c906f"))
	ErrUnknownStageReference = errors.New("step references unknown stage(s)", j.C("ERR_7a61f3c90e2db485"))
)

// Engine rejections.
var (
	ErrBlueprintNotFound   = errors.New("blueprint not found", j.C("ERR_2d8f6e0b13a7c549"))
	ErrNoInitialStage      = errors.New("blueprint does not have an initial stage", j.C("ERR_91c4a7d3e60f2b8e"))
	ErrRunNotFound         = errors.New("run not found", j.C("ERR_c3b07e5f94a1d628"))
	ErrCurrentStageInvalid = errors.New("current stage not found in blueprint", j.C("ERR_5e9d1a2c7f03b46a"))
	ErrTerminalState       = errors.New("cannot execute steps on a final stage", j.C("ERR_a0f48c6d2b79e315"))
	ErrStepNotFound        = errors.New("step not found in blueprint", j.C("ERR_68e3c1b9f5d2a07c"))
	ErrStepDisabled        = errors.New("step is not enabled", j.C("ERR_f27b94e0c8a15d3b"))
	ErrIllegalTransition   = errors.New("step cannot be executed from the current stage", j.C("ERR_3c5a0d8e71f9b264"))
	ErrTargetStageMissing  = errors.New("target stage not found in blueprint", j.C("ERR_d94f2b6a0c3e8157"))
)

// Store and concurrency errors.
var (
	ErrRevisionMismatch = errors.New("run was modified concurrently", j.C("ERR_8b1e6f4d3a92c05e"))
	ErrConcurrentUpdate = errors.New("run is under heavy concurrent modification - retry later", j.C("ERR_16d7c9a3e0b4f82d"))
	ErrInvalidRunRecord = errors.New("run record is invalid", j.C("ERR_e02a5c8f7b41d963"))
	ErrInvalidBlueprint = errors.New("blueprint is nil", j.C("ERR_4b9e0f6a2d75c13e"))
)

var validationErrors = []error{
	ErrNoStages,
	ErrInitialStageCount,
	ErrDuplicateStageID,
	ErrDuplicateStepID,
	ErrUnknownStageReference,
}

// IsValidationFailure reports whether err was produced by Validate rejecting a blueprint.
func IsValidationFailure(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
