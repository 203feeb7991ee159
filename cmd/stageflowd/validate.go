package main

import (
	"fmt"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/spf13/cobra"

	"github.com/luno/stageflow"
)

func newValidateCmd() *cobra.Command {
	var diagram bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a blueprint JSON file without registering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read blueprint", j.MKV{"path": args[0]})
			}

			var b stageflow.Blueprint
			err = stageflow.Unmarshal(data, &b)
			if err != nil {
				return errors.Wrap(err, "decode blueprint", j.MKV{"path": args[0]})
			}

			err = stageflow.Validate(&b)
			if err != nil {
				return err
			}

			if diagram {
				return stageflow.MermaidDiagram(cmd.OutOrStdout(), &b, stageflow.LeftToRightDirection)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "blueprint %q is valid: %d stages, %d steps\n", b.Name, len(b.Stages), len(b.Steps))
			return err
		},
	}

	cmd.Flags().BoolVar(&diagram, "diagram", false, "print a mermaid diagram of the blueprint instead")

	return cmd
}
