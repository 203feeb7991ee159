package stageflow_test

import (
	"bytes"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/stageflow"
)

func TestMermaidDiagram(t *testing.T) {
	var buf bytes.Buffer
	err := stageflow.MermaidDiagram(&buf, approvalBlueprint(), stageflow.UnknownDirection)
	jtest.RequireNil(t, err)

	expected := "stateDiagram-v2\n" +
		"\tdirection LR\n" +
		"\t[*]-->draft\n" +
		"\tdraft-->approved: Approve\n" +
		"\tapproved-->done: Close\n" +
		"\tdone-->[*]\n"
	require.Equal(t, expected, buf.String())
}

func TestMermaidDiagramMultiSource(t *testing.T) {
	b := approvalBlueprint()
	b.Steps = append(b.Steps, stageflow.Step{
		ID: "cancel", Name: "Cancel", Enabled: true, FromStages: []string{"draft", "approved"}, ToStage: "done",
	})

	var buf bytes.Buffer
	err := stageflow.MermaidDiagram(&buf, b, stageflow.TopToBottomDirection)
	jtest.RequireNil(t, err)

	expected := "stateDiagram-v2\n" +
		"\tdirection TB\n" +
		"\t[*]-->draft\n" +
		"\tdraft-->approved: Approve\n" +
		"\tdraft-->done: Cancel\n" +
		"\tapproved-->done: Close\n" +
		"\tapproved-->done: Cancel\n" +
		"\tdone-->[*]\n"
	require.Equal(t, expected, buf.String())
}

func TestMermaidDiagramNil(t *testing.T) {
	err := stageflow.MermaidDiagram(&bytes.Buffer{}, nil, stageflow.LeftToRightDirection)
	jtest.Require(t, stageflow.ErrInvalidBlueprint, err)
}

func TestMermaidDiagramSanitisesInput(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(b *stageflow.Blueprint)
		direction stageflow.MermaidDirection
		expected  string
	}{
		{
			name: "Stage ids with spaces and punctuation",
			mutate: func(b *stageflow.Blueprint) {
				b.Stages[1].ID = "in review: legal"
				b.Steps[0].ToStage = "in review: legal"
				b.Steps[1].FromStages = []string{"in review: legal"}
			},
			direction: stageflow.LeftToRightDirection,
			expected: "stateDiagram-v2\n" +
				"\tdirection LR\n" +
				"\t[*]-->draft\n" +
				"\tdraft-->in_review__legal: Approve\n" +
				"\tin_review__legal-->done: Close\n" +
				"\tdone-->[*]\n",
		},
		{
			name: "Step names with colons and newlines",
			mutate: func(b *stageflow.Blueprint) {
				b.Steps[0].Name = "Approve: manager\nsign off"
				b.Steps[1].Name = "Close\r\n"
			},
			direction: stageflow.LeftToRightDirection,
			expected: "stateDiagram-v2\n" +
				"\tdirection LR\n" +
				"\t[*]-->draft\n" +
				"\tdraft-->approved: Approve#58; manager sign off\n" +
				"\tapproved-->done: Close\n" +
				"\tdone-->[*]\n",
		},
		{
			name:      "Unknown direction falls back to left to right",
			mutate:    func(b *stageflow.Blueprint) {},
			direction: stageflow.MermaidDirection("LR\n\tdraft-->done"),
			expected: "stateDiagram-v2\n" +
				"\tdirection LR\n" +
				"\t[*]-->draft\n" +
				"\tdraft-->approved: Approve\n" +
				"\tapproved-->done: Close\n" +
				"\tdone-->[*]\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := approvalBlueprint()
			tc.mutate(b)

			var buf bytes.Buffer
			err := stageflow.MermaidDiagram(&buf, b, tc.direction)
			jtest.RequireNil(t, err)
			require.Equal(t, tc.expected, buf.String())
		})
	}
}
