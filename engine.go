package stageflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/stageflow/internal/metrics"
)

const defaultMaxCASAttempts = 10

// Engine registers blueprints and moves runs through them. An Engine holds no state of its own beyond its
// collaborators and is safe for concurrent use; every operation re-reads what it needs from the stores.
type Engine struct {
	blueprints BlueprintStore
	runs       RunStore
	clock      clock.Clock
	logger     *logger

	maxCASAttempts int
}

// New constructs an Engine backed by the provided stores.
func New(blueprints BlueprintStore, runs RunStore, opts ...Option) *Engine {
	o := options{
		clock:          clock.RealClock{},
		maxCASAttempts: defaultMaxCASAttempts,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = newDefaultLogger()
	}

	if o.maxCASAttempts < 1 {
		o.maxCASAttempts = 1
	}

	return &Engine{
		blueprints: blueprints,
		runs:       runs,
		clock:      o.clock,
		logger: &logger{
			debugMode: o.debugMode,
			inner:     o.logger,
		},
		maxCASAttempts: o.maxCASAttempts,
	}
}

// RegisterBlueprint validates b and stores it, replacing any blueprint already registered under the same ID. When
// b has no ID a new one is generated. The returned ID is the one the blueprint was stored under.
func (e *Engine) RegisterBlueprint(ctx context.Context, b *Blueprint) (string, error) {
	err := Validate(b)
	if err != nil {
		metrics.BlueprintRegistrations.WithLabelValues("rejected").Inc()
		metrics.ValidationFailures.WithLabelValues(outcomeLabel(err)).Inc()
		return "", err
	}

	b = b.Clone()
	if b.ID == "" {
		uid, err := uuid.NewUUID()
		if err != nil {
			return "", err
		}

		b.ID = uid.String()
	}

	err = e.blueprints.Store(ctx, b)
	if err != nil {
		return "", errors.Wrap(err, "store blueprint", j.MKV{"blueprint_id": b.ID})
	}

	metrics.BlueprintRegistrations.WithLabelValues("accepted").Inc()
	e.logger.Debug(ctx, "registered blueprint", MKV{
		"blueprint_id": b.ID,
		"stages":       strconv.Itoa(len(b.Stages)),
		"steps":        strconv.Itoa(len(b.Steps)),
	})

	return b.ID, nil
}

// GetBlueprint returns the blueprint currently registered under id or ErrBlueprintNotFound.
func (e *Engine) GetBlueprint(ctx context.Context, id string) (*Blueprint, error) {
	return e.blueprints.Lookup(ctx, id)
}

// ListBlueprints lists registered blueprints ordered by ID.
func (e *Engine) ListBlueprints(ctx context.Context, offset int64, limit int) ([]Blueprint, error) {
	return e.blueprints.List(ctx, offset, limit)
}

// StartRun creates a new run of the blueprint registered under blueprintID, positioned at the blueprint's initial
// stage with an empty log.
func (e *Engine) StartRun(ctx context.Context, blueprintID string) (*Run, error) {
	b, err := e.blueprints.Lookup(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	initial, ok := b.InitialStage()
	if !ok {
		return nil, errors.Wrap(ErrNoInitialStage, fmt.Sprintf("blueprint '%s'", blueprintID), j.MKV{"blueprint_id": blueprintID})
	}

	uid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:             uid.String(),
		BlueprintID:    b.ID,
		CurrentStageID: initial.ID,
		Log:            []StepLog{},
	}

	err = e.runs.Store(ctx, run)
	if err != nil {
		return nil, errors.Wrap(err, "store run", j.MKV{"run_id": run.ID})
	}

	metrics.RunsStarted.Inc()
	e.logger.Debug(ctx, "started run", MKV{
		"run_id":       run.ID,
		"blueprint_id": b.ID,
		"stage_id":     initial.ID,
	})

	return run, nil
}

// ExecuteStep applies stepID to the run with the provided ID and returns the updated run. Any rejection leaves the
// stored run untouched. When another writer changes the run between the read and the write the step is evaluated
// again against the fresh state, up to the configured number of attempts after which ErrConcurrentUpdate is returned.
func (e *Engine) ExecuteStep(ctx context.Context, runID, stepID string) (*Run, error) {
	for attempt := 1; attempt <= e.maxCASAttempts; attempt++ {
		run, err := e.runs.Lookup(ctx, runID)
		if err != nil {
			return nil, err
		}

		b, err := e.blueprints.Lookup(ctx, run.BlueprintID)
		if err != nil {
			metrics.StepExecutions.WithLabelValues(outcomeLabel(err)).Inc()
			return nil, err
		}

		next, err := Advance(b, run, stepID, e.clock.Now())
		if err != nil {
			metrics.StepExecutions.WithLabelValues(outcomeLabel(err)).Inc()
			return nil, err
		}

		err = e.runs.CompareAndSwap(ctx, next, run.Revision())
		if errors.Is(err, ErrRevisionMismatch) {
			metrics.StepConflicts.Inc()
			e.logger.Debug(ctx, "run changed during step execution, retrying", MKV{
				"run_id":  runID,
				"step_id": stepID,
				"attempt": strconv.Itoa(attempt),
			})
			continue
		} else if err != nil {
			return nil, errors.Wrap(err, "update run", j.MKV{"run_id": runID})
		}

		metrics.StepExecutions.WithLabelValues("ok").Inc()
		e.logger.Debug(ctx, "executed step", MKV{
			"run_id":     runID,
			"step_id":    stepID,
			"from_stage": run.CurrentStageID,
			"to_stage":   next.CurrentStageID,
		})

		return next, nil
	}

	err := errors.Wrap(ErrConcurrentUpdate, "", j.MKV{
		"run_id":   runID,
		"step_id":  stepID,
		"attempts": e.maxCASAttempts,
	})
	e.logger.Error(ctx, err)

	return nil, err
}

// GetRun returns the run with the provided id or ErrRunNotFound.
func (e *Engine) GetRun(ctx context.Context, id string) (*Run, error) {
	return e.runs.Lookup(ctx, id)
}

// ListRuns lists runs ordered by ID. An empty blueprintID lists the runs of all blueprints.
func (e *Engine) ListRuns(ctx context.Context, blueprintID string, offset int64, limit int) ([]Run, error) {
	return e.runs.List(ctx, blueprintID, offset, limit)
}

// AvailableSteps returns the steps that ExecuteStep would currently accept for the run, in blueprint order. A run on
// a final stage has none.
func (e *Engine) AvailableSteps(ctx context.Context, runID string) ([]Step, error) {
	run, err := e.runs.Lookup(ctx, runID)
	if err != nil {
		return nil, err
	}

	b, err := e.blueprints.Lookup(ctx, run.BlueprintID)
	if err != nil {
		return nil, err
	}

	current, ok := b.Stage(run.CurrentStageID)
	if !ok {
		return nil, errors.Wrap(ErrCurrentStageInvalid, fmt.Sprintf("run '%s' is on stage '%s'", run.ID, run.CurrentStageID), j.MKV{
			"run_id":   run.ID,
			"stage_id": run.CurrentStageID,
		})
	}

	steps := []Step{}
	for _, s := range b.Steps {
		if !executable(b, current, s) {
			continue
		}

		steps = append(steps, s)
	}

	return steps, nil
}

var outcomeLabels = []struct {
	err   error
	label string
}{
	{ErrNoStages, "no_stages"},
	{ErrInitialStageCount, "initial_stage_count"},
	{ErrDuplicateStageID, "duplicate_stage_id"},
	{ErrDuplicateStepID, "duplicate_step_id"},
	{ErrUnknownStageReference, "unknown_stage_reference"},
	{ErrInvalidBlueprint, "invalid_blueprint"},
	{ErrBlueprintNotFound, "blueprint_not_found"},
	{ErrCurrentStageInvalid, "current_stage_invalid"},
	{ErrTerminalState, "terminal_state"},
	{ErrStepNotFound, "step_not_found"},
	{ErrStepDisabled, "step_disabled"},
	{ErrIllegalTransition, "illegal_transition"},
	{ErrTargetStageMissing, "target_stage_missing"},
}

func outcomeLabel(err error) string {
	for _, o := range outcomeLabels {
		if errors.Is(err, o.err) {
			return o.label
		}
	}

	return "error"
}
