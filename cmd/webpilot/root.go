package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webpilot",
		Short:         "Navigate a website with a language model and extract the answer as a table",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("webpilot v{{.Version}}\n")
	root.PersistentFlags().StringP("config", "c", "", "path to a YAML config file")

	root.AddCommand(newRunCmd())
	return root
}
