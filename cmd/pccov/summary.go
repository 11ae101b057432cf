package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/pccov/internal/app"
)

type summaryFlags struct {
	jsonPath string
	maxRows  int
}

func newSummaryCmd() *cobra.Command {
	flags := &summaryFlags{}

	cmd := &cobra.Command{
		Use:   "summary [--json tree.json] <tracefile>...",
		Short: "Print per-directory line and function coverage",
		Long: `Summarise one or more LCOV tracefiles by directory. The tree is rooted
at the deepest directory shared by every file.`,
		Example: `  pccov summary coverage.info
  pccov summary --json tree.json unit.info integration.info`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.jsonPath, "json", "", "Also write the summary tree as JSON")
	cmd.Flags().IntVar(&flags.maxRows, "rows", 40, "Maximum rows to print (0 for all)")

	return cmd
}

func runSummary(cmd *cobra.Command, flags *summaryFlags, args []string) error {
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	_, err = app.RunSummary(app.SummaryOptions{
		Inputs:  args,
		JSON:    flags.jsonPath,
		MaxRows: flags.maxRows,
		Logger:  logger,
		Stdout:  cmd.OutOrStdout(),
	})
	return err
}
