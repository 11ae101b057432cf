// Package backfill adds never-executed lines and functions to a file's
// coverage from a static disassembly of the file.
package backfill

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tturner/pccov/internal/coverage"
	"github.com/tturner/pccov/internal/disasm"
	"github.com/tturner/pccov/internal/logging"
)

// ErrNoListing is returned when the disassembly contains no usable block.
var ErrNoListing = errors.New("no usable disassembly block")

// Result counts the keys one Backfill call added.
type Result struct {
	Lines     int
	Functions int
}

// Backfiller inserts zero-count keys for every line and function the
// disassembler reports.
type Backfiller struct {
	dis    disasm.Disassembler
	logger *logging.Logger
}

// New creates a Backfiller.
func New(dis disasm.Disassembler, logger *logging.Logger) *Backfiller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Backfiller{dis: dis, logger: logger}
}

// Backfill disassembles path and inserts its lines and functions into entry.
// Existing counts are left untouched. On error entry is not modified.
func (b *Backfiller) Backfill(ctx context.Context, path string, entry *coverage.FileAggregate) (Result, error) {
	var res Result
	out, err := b.dis.Disassemble(ctx, path)
	if err != nil {
		return res, err
	}
	listing, err := disasm.ParseListing(bytes.NewReader(out))
	if err != nil {
		return res, fmt.Errorf("parse listing for %s: %w", path, err)
	}
	if listing.Blocks == 0 {
		return res, fmt.Errorf("%s: %w", path, ErrNoListing)
	}

	for _, line := range listing.Lines {
		if entry.InsertLine(line) {
			res.Lines++
		}
	}
	for name, line := range listing.Functions {
		if entry.InsertFunction(name, line) {
			res.Functions++
		}
	}
	b.logger.Debug("backfilled %s: %d lines, %d functions", path, res.Lines, res.Functions)
	return res, nil
}
