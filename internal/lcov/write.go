// Package lcov writes and reads LCOV tracefiles.
package lcov

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tturner/pccov/internal/coverage"
)

// WriteOptions controls tracefile emission.
type WriteOptions struct {
	// TestName is written on the TN line.
	TestName string
	// Totals adds FNF/FNH and LH/LF summary lines to every record.
	Totals bool
}

// Write emits agg as a tracefile. Files are sorted by path, functions by
// declaration line then name, lines ascending, so an unchanged aggregate
// always produces identical bytes.
func Write(w io.Writer, agg *coverage.Aggregate, opts WriteOptions) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "TN:%s\n", opts.TestName)
	for _, path := range agg.Paths() {
		entry := agg.Lookup(path)
		if entry == nil {
			continue
		}
		writeRecord(bw, path, entry, opts.Totals)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write tracefile: %w", err)
	}
	return nil
}

func writeRecord(w *bufio.Writer, path string, entry *coverage.FileAggregate, totals bool) {
	fmt.Fprintf(w, "SF:%s\n", path)

	var fnf, fnh int
	for _, fn := range entry.Functions() {
		fmt.Fprintf(w, "FN:%d,%s\n", fn.Line, fn.Name)
		fmt.Fprintf(w, "FNDA:%d,%s\n", fn.Count, fn.Name)
		fnf++
		if fn.Count != 0 {
			fnh++
		}
	}
	if totals {
		fmt.Fprintf(w, "FNF:%d\n", fnf)
		fmt.Fprintf(w, "FNH:%d\n", fnh)
	}

	var lf, lh int
	for _, lc := range entry.Lines() {
		fmt.Fprintf(w, "DA:%d,%d\n", lc.Line, lc.Count)
		lf++
		if lc.Count != 0 {
			lh++
		}
	}
	if totals {
		fmt.Fprintf(w, "LH:%d\n", lh)
		fmt.Fprintf(w, "LF:%d\n", lf)
	}

	fmt.Fprint(w, "end_of_record\n")
}

// WriteFile writes agg to path, replacing any existing file.
func WriteFile(path string, agg *coverage.Aggregate, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tracefile: %w", err)
	}
	if err := Write(f, agg, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close tracefile: %w", err)
	}
	return nil
}
