package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/pccov/internal/app"
	"github.com/tturner/pccov/internal/config"
	"github.com/tturner/pccov/internal/logging"
)

type convertFlags struct {
	configPath  string
	shell       string
	jobs        int
	timeout     time.Duration
	testName    string
	totals      bool
	add         []string
	summaryJSON string
	summary     bool
	noBackfill  bool
}

func newConvertCmd() *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "pccov <input.json> <output.info> [dir...]",
		Short: "Convert per-opcode execution counts into an LCOV tracefile",
		Long: `pccov reads a line-delimited stream of per-opcode execution count
records, merges them per source file and line, and writes an LCOV tracefile.

Files seen at run time are backfilled with their never-executed lines and
functions by disassembling them with the script engine shell. Every [dir]
is then swept for source files no record mentioned, which are added with
zero counts. Use - for stdin or stdout.`,
		Example: `  # Convert and backfill from the source tree
  pccov pccounts.json coverage.info ~/src/app

  # Dynamic data only, with summary lines and a directory tree
  pccov --no-backfill --totals --summary-json tree.json pccounts.json out.info`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, args)
		},
	}
	registerLogFlags(cmd)

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&flags.shell, "shell", "", "Script engine shell used for disassembly (default \"js\" in PATH)")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "Concurrent disassembler processes (default: number of CPUs)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-file disassembler timeout (default 60s)")
	cmd.Flags().StringVar(&flags.testName, "test-name", "", "Test name written on the TN line")
	cmd.Flags().BoolVar(&flags.totals, "totals", false, "Emit FNF/FNH/LH/LF summary lines")
	cmd.Flags().StringArrayVarP(&flags.add, "add", "a", nil, "Merge an existing tracefile into the output (repeatable)")
	cmd.Flags().StringVar(&flags.summaryJSON, "summary-json", "", "Write the per-directory hit/found tree as JSON")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print a per-directory summary to stderr")
	cmd.Flags().BoolVar(&flags.noBackfill, "no-backfill", false, "Skip static disassembly; sweep adds files without lines")

	return cmd
}

func runConvert(cmd *cobra.Command, flags *convertFlags, args []string) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if err := applyConvertFlags(cmd, flags, cfg); err != nil {
		return err
	}

	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	_, err = app.RunConvert(cmd.Context(), app.ConvertOptions{
		Input:       args[0],
		Output:      args[1],
		Roots:       args[2:],
		Add:         flags.add,
		SummaryJSON: flags.summaryJSON,
		Summary:     flags.summary,
		NoBackfill:  flags.noBackfill,
		Progress:    logger.GetLevel() >= logging.LogLevelInfo,
		Config:      cfg,
		Logger:      logger,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
	return err
}

// applyConvertFlags overlays explicitly set flags on the loaded config.
func applyConvertFlags(cmd *cobra.Command, flags *convertFlags, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("shell") {
		cfg.Disassembler.Shell = flags.shell
	}
	if f.Changed("jobs") {
		cfg.Disassembler.Jobs = flags.jobs
	}
	if f.Changed("timeout") {
		cfg.Disassembler.Timeout = flags.timeout
	}
	if f.Changed("test-name") {
		cfg.TestName = flags.testName
	}
	if f.Changed("totals") {
		cfg.EmitTotals = flags.totals
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
