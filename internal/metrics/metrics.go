package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	outcome     = "outcome"
	reason      = "reason"
)

var (
	// BlueprintRegistrations counts registration attempts by outcome ("accepted" or "rejected")
	BlueprintRegistrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stageflow_blueprint_registrations_total",
		Help: "Number of blueprint registrations by outcome",
	}, []string{outcome})

	// ValidationFailures counts rejected blueprints by the failing check
	ValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stageflow_validation_failures_total",
		Help: "Number of blueprints rejected by validation",
	}, []string{reason})

	// RunsStarted is the number of runs created
	RunsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stageflow_runs_started_total",
		Help: "Number of runs started",
	})

	// StepExecutions counts step execution requests by outcome. Successful executions are labelled "ok" and
	// rejections carry the name of the rejection.
	StepExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stageflow_step_executions_total",
		Help: "Number of step execution requests by outcome",
	}, []string{outcome})

	// StepConflicts is the number of times a step lost a compare-and-swap and was re-evaluated
	StepConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stageflow_step_cas_conflicts_total",
		Help: "Number of compare-and-swap conflicts while executing steps",
	})
)

func init() {
	prometheus.MustRegister(
		BlueprintRegistrations,
		ValidationFailures,
		RunsStarted,
		StepExecutions,
		StepConflicts,
	)
}

// Reset clears the labelled counters. RunsStarted and StepConflicts are plain counters and only ever grow.
func Reset() {
	BlueprintRegistrations.Reset()
	ValidationFailures.Reset()
	StepExecutions.Reset()
}
