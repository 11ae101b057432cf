// Package coverage holds the file-keyed coverage aggregate and the merge
// rules that fold execution records into it.
package coverage

import (
	"sort"
	"sync"
)

// Function is a function's declaration line and cumulative hit count.
type Function struct {
	Name  string
	Line  int
	Count int64
}

// LineCount is one line's cumulative hit count.
type LineCount struct {
	Line  int
	Count int64
}

// FileAggregate accumulates counts for one source file. Keys are never
// removed and counts never decrease. Safe for concurrent use.
type FileAggregate struct {
	mu    sync.Mutex
	lines map[int]int64
	funcs map[string]*Function
}

// NewFileAggregate returns an empty entry.
func NewFileAggregate() *FileAggregate {
	return &FileAggregate{
		lines: make(map[int]int64),
		funcs: make(map[string]*Function),
	}
}

// AddLines adds per-line counts into the running totals.
func (f *FileAggregate) AddLines(counts map[int]int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for line, n := range counts {
		f.lines[line] += n
	}
}

// AddFunction adds count to name, creating it at line on first sight. A
// known function keeps its first declaration line.
func (f *FileAggregate) AddFunction(name string, line int, count int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.funcs[name]
	if !ok {
		fn = &Function{Name: name, Line: line}
		f.funcs[name] = fn
	}
	fn.Count += count
}

// InsertLine records line with a zero count if it is not known yet. It
// reports whether the line was added.
func (f *FileAggregate) InsertLine(line int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lines[line]; ok {
		return false
	}
	f.lines[line] = 0
	return true
}

// InsertFunction records name at line with a zero count if it is not known
// yet. It reports whether the function was added.
func (f *FileAggregate) InsertFunction(name string, line int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.funcs[name]; ok {
		return false
	}
	f.funcs[name] = &Function{Name: name, Line: line}
	return true
}

// Line returns the count for line and whether it is known.
func (f *FileAggregate) Line(line int) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lines[line]
	return n, ok
}

// Function returns a copy of the named function.
func (f *FileAggregate) Function(name string) (Function, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.funcs[name]
	if !ok {
		return Function{}, false
	}
	return *fn, true
}

// Lines returns all line counts ordered by line number.
func (f *FileAggregate) Lines() []LineCount {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LineCount, 0, len(f.lines))
	for line, n := range f.lines {
		out = append(out, LineCount{Line: line, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Functions returns copies of all functions ordered by declaration line,
// then name.
func (f *FileAggregate) Functions() []Function {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Function, 0, len(f.funcs))
	for _, fn := range f.funcs {
		out = append(out, *fn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Stats summarises an entry.
type Stats struct {
	LinesFound int
	LinesHit   int
	FuncsFound int
	FuncsHit   int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.LinesFound += o.LinesFound
	s.LinesHit += o.LinesHit
	s.FuncsFound += o.FuncsFound
	s.FuncsHit += o.FuncsHit
}

// Stats counts found and hit lines and functions.
func (f *FileAggregate) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s Stats
	for _, n := range f.lines {
		s.LinesFound++
		if n > 0 {
			s.LinesHit++
		}
	}
	for _, fn := range f.funcs {
		s.FuncsFound++
		if fn.Count > 0 {
			s.FuncsHit++
		}
	}
	return s
}

// Aggregate maps canonical file paths to their entries. It is the only
// mutable state of a conversion run and is passed explicitly to every
// component. Safe for concurrent use.
type Aggregate struct {
	mu    sync.RWMutex
	files map[string]*FileAggregate
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{files: make(map[string]*FileAggregate)}
}

// Entry returns the entry for path, creating it on first sight.
func (a *Aggregate) Entry(path string) *FileAggregate {
	a.mu.RLock()
	f, ok := a.files[path]
	a.mu.RUnlock()
	if ok {
		return f
	}
	f, _ = a.Claim(path)
	if f == nil {
		f = a.Lookup(path)
	}
	return f
}

// Claim creates an empty entry for path only if none exists. It returns the
// new entry and true, or nil and false when path is already present.
func (a *Aggregate) Claim(path string) (*FileAggregate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.files[path]; ok {
		return nil, false
	}
	f := NewFileAggregate()
	a.files[path] = f
	return f, true
}

// Lookup returns the entry for path or nil.
func (a *Aggregate) Lookup(path string) *FileAggregate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.files[path]
}

// Len returns the number of files.
func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Paths returns all file paths in sorted order.
func (a *Aggregate) Paths() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.files))
	for p := range a.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats sums the stats of every file.
func (a *Aggregate) Stats() Stats {
	var total Stats
	for _, p := range a.Paths() {
		total.Add(a.Lookup(p).Stats())
	}
	return total
}
