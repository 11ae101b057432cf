package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/pccov/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration as YAML",
		Long: `Print the built-in configuration. Redirect it to a file, edit it and
pass it back with --config.`,
		Example: `  pccov config > pccov.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.Default())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
