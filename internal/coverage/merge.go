package coverage

import (
	"github.com/tturner/pccov/internal/logging"
	"github.com/tturner/pccov/internal/pccount"
	"github.com/tturner/pccov/internal/resolve"
)

// PathResolver resolves a script's reported file against a record's base
// directory. *resolve.Resolver implements it.
type PathResolver interface {
	Lookup(raw, base string) resolve.Resolution
}

// MergeStats describes what one Merge call did.
type MergeStats struct {
	Scripts  int
	Unmapped int
	Opaque   int
}

// Merger folds records into an aggregate.
type Merger struct {
	paths  PathResolver
	logger *logging.Logger
}

// NewMerger creates a Merger.
func NewMerger(paths PathResolver, logger *logging.Logger) *Merger {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Merger{paths: paths, logger: logger}
}

// Merge folds one record into agg.
//
// Within the record, opcodes sharing a line contribute their maximum count:
// they are alternative encodings of one execution, not separate events.
// Across records the per-record maxima are summed. Function counts add the
// summed per-kind totals of every invocation, which overstates real call
// counts; that is a known limitation of the input data.
func (m *Merger) Merge(rec pccount.Record, agg *Aggregate) MergeStats {
	var st MergeStats
	for _, s := range rec.Scripts {
		res := m.paths.Lookup(s.File, rec.Base)
		switch res.Status {
		case resolve.Missing:
			st.Unmapped++
			continue
		case resolve.Opaque:
			st.Opaque++
			continue
		}
		st.Scripts++

		entry := agg.Entry(res.Path)
		if s.HasOpcodes {
			entry.AddLines(lineMaxima(s.Opcodes))
		}
		if s.Name != "" {
			entry.AddFunction(s.Name, s.Line, s.Totals)
		}
	}
	if rec.Skipped > 0 {
		m.logger.Debug("record %s: skipped %d malformed entries", rec.Base, rec.Skipped)
	}
	return st
}

func lineMaxima(ops []pccount.Opcode) map[int]int64 {
	out := make(map[int]int64, len(ops))
	for _, op := range ops {
		if cur, ok := out[op.Line]; !ok || op.Count > cur {
			out[op.Line] = op.Count
		}
	}
	return out
}
