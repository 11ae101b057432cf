package app

import (
	"fmt"
	"io"

	"github.com/tturner/pccov/internal/coverage"
	"github.com/tturner/pccov/internal/lcov"
	"github.com/tturner/pccov/internal/logging"
	"github.com/tturner/pccov/internal/report"
	"github.com/tturner/pccov/internal/resolve"
)

// MergeOptions configures RunMerge.
type MergeOptions struct {
	Inputs   []string
	Output   string
	TestName string
	Totals   bool
	Logger   *logging.Logger
	Stdout   io.Writer
}

// RunMerge adds several tracefiles together into one.
func RunMerge(opts MergeOptions) (coverage.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if len(opts.Inputs) == 0 {
		return coverage.Stats{}, fmt.Errorf("no tracefiles to merge")
	}
	_, stdout, _ := streams(nil, opts.Stdout, nil)

	agg, err := loadTracefiles(opts.Inputs, logger)
	if err != nil {
		return coverage.Stats{}, err
	}
	wopts := lcov.WriteOptions{TestName: opts.TestName, Totals: opts.Totals}
	if err := writeTracefile(opts.Output, stdout, agg, wopts); err != nil {
		return coverage.Stats{}, err
	}
	st := agg.Stats()
	logger.Info("Merged %d tracefiles (%d files) into %s", len(opts.Inputs), agg.Len(), opts.Output)
	return st, nil
}

// SummaryOptions configures RunSummary.
type SummaryOptions struct {
	Inputs  []string
	JSON    string
	MaxRows int
	Logger  *logging.Logger
	Stdout  io.Writer
}

// RunSummary prints the per-directory summary of the given tracefiles and
// optionally writes the summary tree as JSON.
func RunSummary(opts SummaryOptions) (*report.Node, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("no tracefiles to summarise")
	}
	_, stdout, _ := streams(nil, opts.Stdout, nil)

	agg, err := loadTracefiles(opts.Inputs, logger)
	if err != nil {
		return nil, err
	}
	root, dir := report.BuildTree(agg)
	if opts.JSON != "" {
		if err := report.WriteJSONFile(opts.JSON, root); err != nil {
			return nil, err
		}
		logger.Verbose("Wrote summary tree to %s", opts.JSON)
	}
	fmt.Fprintln(stdout, report.RenderSummary(root, dir, opts.MaxRows))
	return root, nil
}

func loadTracefiles(inputs []string, logger *logging.Logger) (*coverage.Aggregate, error) {
	paths := resolve.New(nil, nil, logger)
	agg := coverage.NewAggregate()
	for _, in := range inputs {
		if err := lcov.ReadFile(in, agg, paths); err != nil {
			return nil, err
		}
		logger.Verbose("Read tracefile %s", in)
	}
	return agg, nil
}
