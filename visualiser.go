package stageflow

import (
	"io"
	"strings"
	"text/template"

	"github.com/luno/stageflow/internal/graph"
)

// MermaidDiagram writes a mermaid state diagram of the blueprint to w. The initial stage is drawn as the entry
// point, final stages as exit points and every step as one edge per source stage labelled with the step's name.
func MermaidDiagram(w io.Writer, b *Blueprint, d MermaidDirection) error {
	if b == nil {
		return ErrInvalidBlueprint
	}

	if !d.valid() {
		d = LeftToRightDirection
	}

	g := graph.New()
	for _, s := range b.Stages {
		g.AddNode(s.ID)
		if s.IsInitial {
			g.MarkStarting(s.ID)
		}

		if s.IsFinal {
			g.MarkTerminal(s.ID)
		}
	}

	for _, s := range b.Steps {
		for _, from := range s.FromStages {
			g.AddTransition(from, s.ToStage, s.Name)
		}
	}

	info := g.Info()
	mf := MermaidFormat{
		Direction:      d,
	}

	for _, n := range info.StartingNodes {
		mf.StartingPoints = append(mf.StartingPoints, mermaidStateID(n))
	}

	for _, n := range info.TerminalNodes {
		mf.TerminalPoints = append(mf.TerminalPoints, mermaidStateID(n))
	}

	for _, t := range info.Transitions {
		mf.Transitions = append(mf.Transitions, MermaidTransition{
			From:  mermaidStateID(t.From),
			To:    mermaidStateID(t.To),
			Label: mermaidLabel(t.Label),
		})
	}

	return mermaidTemplate.Execute(w, mf)
}

type MermaidFormat struct {
	Direction      MermaidDirection
	StartingPoints []string
	TerminalPoints []string
	Transitions    []MermaidTransition
}

type MermaidDirection string

const (
	UnknownDirection     MermaidDirection = ""
	TopToBottomDirection MermaidDirection = "TB"
	LeftToRightDirection MermaidDirection = "LR"
	RightToLeftDirection MermaidDirection = "RL"
	BottomToTopDirection MermaidDirection = "BT"
)

func (d MermaidDirection) valid() bool {
	switch d {
	case TopToBottomDirection, LeftToRightDirection, RightToLeftDirection, BottomToTopDirection:
		return true
	default:
		return false
	}
}

// mermaidStateID maps a stage id onto the characters mermaid accepts in a state identifier.
func mermaidStateID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

var labelReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", ":", "#58;")

// mermaidLabel keeps a transition label on a single line and escapes the label separator.
func mermaidLabel(label string) string {
	return strings.TrimSpace(labelReplacer.Replace(label))
}

type MermaidTransition struct {
	From  string
	To    string
	Label string
}

var mermaidTemplate = template.Must(template.New("mermaid").Parse(`stateDiagram-v2
	direction {{.Direction}}
{{- range .StartingPoints }}
	[*]-->{{.}}
{{- end }}
{{- range .Transitions }}
	{{.From}}-->{{.To}}{{if .Label}}: {{.Label}}{{end}}
{{- end }}
{{- range .TerminalPoints }}
	{{.}}-->[*]
{{- end }}
`))
