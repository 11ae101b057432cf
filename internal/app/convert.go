package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/tturner/pccov/internal/backfill"
	"github.com/tturner/pccov/internal/config"
	"github.com/tturner/pccov/internal/coverage"
	"github.com/tturner/pccov/internal/disasm"
	"github.com/tturner/pccov/internal/errors"
	"github.com/tturner/pccov/internal/lcov"
	"github.com/tturner/pccov/internal/logging"
	"github.com/tturner/pccov/internal/pccount"
	"github.com/tturner/pccov/internal/progress"
	"github.com/tturner/pccov/internal/report"
	"github.com/tturner/pccov/internal/resolve"
	"github.com/tturner/pccov/internal/sweep"
)

// StdStream names stdin or stdout in place of a path.
const StdStream = "-"

// ConvertOptions configures one conversion run.
type ConvertOptions struct {
	Input  string
	Output string
	// Roots are swept for files no record mentioned.
	Roots []string
	// Add lists tracefiles merged into the result before it is written.
	Add []string
	// SummaryJSON, when set, receives the per-directory summary tree.
	SummaryJSON string
	// Summary prints the terminal summary to Stderr.
	Summary    bool
	NoBackfill bool
	Progress   bool

	Config *config.Config
	Logger *logging.Logger
	// Disassembler replaces the configured shell when set.
	Disassembler disasm.Disassembler
	FileSystem   resolve.FileSystem
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// ConvertResult reports what a run did.
type ConvertResult struct {
	Records        int
	Scripts        int
	Unmapped       int
	Opaque         int
	Backfilled     int
	BackfillFailed int
	Sweep          sweep.Result
	Files          int
	Stats          coverage.Stats
}

// RunConvert reads the record stream, merges it, backfills and sweeps, then
// writes the tracefile.
func RunConvert(ctx context.Context, opts ConvertOptions) (*ConvertResult, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	stdin, stdout, stderr := streams(opts.Stdin, opts.Stdout, opts.Stderr)

	dis := opts.Disassembler
	shell := cfg.Disassembler.Shell
	if dis == nil && !opts.NoBackfill {
		path, err := disasm.ResolveShellPath(shell)
		if err != nil {
			return nil, errors.WrapDisassemblerError(err, shell)
		}
		shell = path
		dis = disasm.NewShell(disasm.Options{
			Path:    path,
			Args:    cfg.Disassembler.Args,
			Timeout: cfg.Disassembler.Timeout,
		}, logger)
	}
	if opts.NoBackfill {
		shell = ""
	}
	logger.LogStartup(opts.Input, opts.Output, opts.Roots, shell, cfg.Disassembler.Jobs)

	paths := resolve.New(opts.FileSystem, resolve.NewMappingURIResolver(cfg.URIMappings), logger)
	var sweeper *sweep.Sweeper
	if len(opts.Roots) > 0 {
		var err error
		sweeper, err = sweep.New(paths, sweep.Options{Include: cfg.Sources.Include, Exclude: cfg.Sources.Exclude}, logger)
		if err != nil {
			return nil, errors.WrapConfigError(err, "sources")
		}
	}

	agg := coverage.NewAggregate()
	res := &ConvertResult{}

	start := time.Now()
	if err := mergeStream(ctx, opts.Input, stdin, paths, agg, res, logger, opts.Progress); err != nil {
		return res, err
	}
	logger.Info("Merged %d records into %d files in %s", res.Records, agg.Len(), time.Since(start).Round(time.Millisecond))
	if res.Unmapped > 0 || res.Opaque > 0 {
		logger.Verbose("Skipped %d scripts without a source file and %d with unsupported URLs", res.Unmapped, res.Opaque)
	}

	if dis != nil || sweeper != nil {
		if err := backfillAndSweep(ctx, cfg.Disassembler.Jobs, dis, sweeper, opts.Roots, agg, res, logger, opts.Progress); err != nil {
			return res, err
		}
	}

	for _, extra := range opts.Add {
		if err := lcov.ReadFile(extra, agg, paths); err != nil {
			return res, fmt.Errorf("add tracefile: %w", err)
		}
		logger.Verbose("Added tracefile %s", extra)
	}

	wopts := lcov.WriteOptions{TestName: cfg.TestName, Totals: cfg.EmitTotals}
	if err := writeTracefile(opts.Output, stdout, agg, wopts); err != nil {
		return res, err
	}

	res.Files = agg.Len()
	res.Stats = agg.Stats()
	logger.Info("Wrote %d files to %s (lines %d/%d, functions %d/%d)",
		res.Files, opts.Output, res.Stats.LinesHit, res.Stats.LinesFound, res.Stats.FuncsHit, res.Stats.FuncsFound)

	if err := writeSummaries(agg, opts.SummaryJSON, opts.Summary, stderr); err != nil {
		return res, err
	}
	return res, nil
}

func mergeStream(ctx context.Context, input string, stdin io.Reader, paths *resolve.Resolver, agg *coverage.Aggregate, res *ConvertResult, logger *logging.Logger, showProgress bool) error {
	var r io.Reader = stdin
	if input != StdStream {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	counter := progress.NewCounter("Records", 200*time.Millisecond)
	if !showProgress {
		counter.Disable()
	}
	defer counter.Finish()

	merger := coverage.NewMerger(paths, logger)
	records := pccount.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := records.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var le *pccount.LineError
			if stderrors.As(err, &le) {
				return errors.WrapInputError(le.Err, input, le.Line)
			}
			return fmt.Errorf("read input: %w", err)
		}

		st := merger.Merge(rec, agg)
		res.Records++
		res.Scripts += st.Scripts
		res.Unmapped += st.Unmapped
		res.Opaque += st.Opaque
		counter.Update(int64(res.Records), fmt.Sprintf("%d files", agg.Len()))
	}
}

// backfillAndSweep backfills every file seen so far, then sweeps the roots
// and backfills what the sweep claims. Tasks share one bounded pool; each
// task only touches its own entry.
func backfillAndSweep(ctx context.Context, jobs int, dis disasm.Disassembler, sweeper *sweep.Sweeper, roots []string, agg *coverage.Aggregate, res *ConvertResult, logger *logging.Logger, showProgress bool) error {
	if jobs < 1 {
		jobs = 1
	}
	p := pool.New().WithMaxGoroutines(jobs)

	bar := progress.NewProgressBar(0, "Backfill")
	if !showProgress || dis == nil {
		bar.Disable()
	}

	var ok, failed atomic.Int64
	var bf *backfill.Backfiller
	if dis != nil {
		bf = backfill.New(dis, logger)
	}
	submit := func(path string, entry *coverage.FileAggregate) {
		if bf == nil {
			return
		}
		bar.AddTotal(1)
		p.Go(func() {
			defer bar.Increment()
			if ctx.Err() != nil {
				return
			}
			if _, err := bf.Backfill(ctx, path, entry); err != nil {
				failed.Add(1)
				logger.Warn("Backfill failed for %s: %v", path, err)
				return
			}
			ok.Add(1)
		})
	}

	for _, path := range agg.Paths() {
		submit(path, agg.Lookup(path))
	}

	var sweepErr error
	if sweeper != nil {
		res.Sweep, sweepErr = sweeper.Sweep(ctx, roots, agg, submit)
		logger.Verbose("Sweep matched %d files, claimed %d, %d already seen, %d errors",
			res.Sweep.Matched, res.Sweep.Claimed, res.Sweep.Known, res.Sweep.Errors)
	}

	p.Wait()
	bar.Finish()

	_, queued := bar.Current()
	res.Backfilled = int(ok.Load())
	res.BackfillFailed = int(failed.Load())
	if res.BackfillFailed > 0 {
		logger.Warn("Backfill failed for %d of %d files", res.BackfillFailed, queued)
	}
	if bf != nil {
		logger.Verbose("Backfilled %d of %d files", res.Backfilled, queued)
	}
	if sweepErr != nil {
		return sweepErr
	}
	return ctx.Err()
}

func writeTracefile(output string, stdout io.Writer, agg *coverage.Aggregate, opts lcov.WriteOptions) error {
	if output == StdStream {
		return lcov.Write(stdout, agg, opts)
	}
	return lcov.WriteFile(output, agg, opts)
}

func writeSummaries(agg *coverage.Aggregate, jsonPath string, terminal bool, stderr io.Writer) error {
	if jsonPath == "" && !terminal {
		return nil
	}
	root, dir := report.BuildTree(agg)
	if jsonPath != "" {
		if err := report.WriteJSONFile(jsonPath, root); err != nil {
			return err
		}
	}
	if terminal {
		fmt.Fprintln(stderr, report.RenderSummary(root, dir, 20))
	}
	return nil
}

func streams(in io.Reader, out, errw io.Writer) (io.Reader, io.Writer, io.Writer) {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errw == nil {
		errw = os.Stderr
	}
	return in, out, errw
}
