package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "stageflowd",
		Short:        "Serves process blueprints and runs over HTTP",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newValidateCmd())

	return cmd
}
