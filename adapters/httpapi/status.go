package httpapi

import (
	"net/http"

	"github.com/luno/jettison/errors"

	"github.com/luno/stageflow"
)

var clientErrors = []error{
	stageflow.ErrInvalidBlueprint,
	stageflow.ErrNoInitialStage,
	stageflow.ErrCurrentStageInvalid,
	stageflow.ErrTerminalState,
	stageflow.ErrStepNotFound,
	stageflow.ErrStepDisabled,
	stageflow.ErrIllegalTransition,
	stageflow.ErrTargetStageMissing,
}

// StatusCode maps an engine error to the HTTP status it is reported with.
func StatusCode(err error) int {
	if stageflow.IsValidationFailure(err) {
		return http.StatusBadRequest
	}

	if errors.Is(err, stageflow.ErrBlueprintNotFound) || errors.Is(err, stageflow.ErrRunNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, stageflow.ErrConcurrentUpdate) {
		return http.StatusConflict
	}

	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}
