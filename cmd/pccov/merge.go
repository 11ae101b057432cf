package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/pccov/internal/app"
)

type mergeFlags struct {
	output   string
	testName string
	totals   bool
}

func newMergeCmd() *cobra.Command {
	flags := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge -o <output.info> <tracefile>...",
		Short: "Add LCOV tracefiles together",
		Long: `Read one or more LCOV tracefiles and write their sum. Line and function
counts are added; a function keeps the first declaration line seen.`,
		Example: `  pccov merge -o all.info unit.info integration.info`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output tracefile (- for stdout)")
	cmd.Flags().StringVar(&flags.testName, "test-name", "", "Test name written on the TN line")
	cmd.Flags().BoolVar(&flags.totals, "totals", false, "Emit FNF/FNH/LH/LF summary lines")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(cmd *cobra.Command, flags *mergeFlags, args []string) error {
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	_, err = app.RunMerge(app.MergeOptions{
		Inputs:   args,
		Output:   flags.output,
		TestName: flags.testName,
		Totals:   flags.totals,
		Logger:   logger,
		Stdout:   cmd.OutOrStdout(),
	})
	return err
}
