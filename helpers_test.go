package stageflow_test

import (
	"context"

	"github.com/luno/stageflow"
)

// approvalBlueprint is a three stage process where a draft is approved and then closed.
func approvalBlueprint() *stageflow.Blueprint {
	return &stageflow.Blueprint{
		ID:   "B1",
		Name: "Approval",
		Stages: []stageflow.Stage{
			{ID: "draft", Name: "Draft", IsInitial: true, Enabled: true},
			{ID: "approved", Name: "Approved", Enabled: true},
			{ID: "done", Name: "Done", IsFinal: true, Enabled: true},
		},
		Steps: []stageflow.Step{
			{ID: "s1", Name: "Approve", Enabled: true, FromStages: []string{"draft"}, ToStage: "approved"},
			{ID: "s2", Name: "Close", Enabled: true, FromStages: []string{"approved"}, ToStage: "done"},
		},
	}
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, meta stageflow.MKV) {}

func (nopLogger) Error(ctx context.Context, err error) {}
