package lcov

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tturner/pccov/internal/coverage"
)

// Canonicalizer maps a source path to the key used in the aggregate.
type Canonicalizer interface {
	Canonical(path string) (string, bool)
}

// ParseError reports a malformed tracefile line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tracefile line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("tracefile line %d: unknown record %q", e.Line, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// record collects one SF block before it is folded into the aggregate.
type record struct {
	path    string
	lines   map[int]int64
	fnLines map[string]int
	fnHits  map[string]int64
}

// Read parses a tracefile and adds its counts to agg: line and function
// counts are summed, a function keeps its first declaration line, and the
// TN and summary lines are ignored. A nil canon keeps SF paths as written;
// otherwise symlinked paths are replaced by their targets.
func Read(r io.Reader, agg *coverage.Aggregate, canon Canonicalizer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var cur *record
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if text == "end_of_record" {
			if cur == nil {
				return &ParseError{Line: lineNo, Text: text, Err: fmt.Errorf("end_of_record outside a record")}
			}
			cur.fold(agg)
			cur = nil
			continue
		}

		instr, data, ok := strings.Cut(text, ":")
		if !ok {
			return &ParseError{Line: lineNo, Text: text}
		}

		if cur == nil {
			switch instr {
			case "TN":
			case "SF":
				cur = newRecord(data, canon)
			default:
				return &ParseError{Line: lineNo, Text: text}
			}
			continue
		}

		if err := cur.add(instr, data); err != nil {
			if errors.Is(err, errUnknown) {
				return &ParseError{Line: lineNo, Text: text}
			}
			return &ParseError{Line: lineNo, Text: text, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read tracefile: %w", err)
	}
	if cur != nil {
		return &ParseError{Line: lineNo, Text: "SF:" + cur.path, Err: fmt.Errorf("missing end_of_record")}
	}
	return nil
}

// ReadFile reads the tracefile at path into agg.
func ReadFile(path string, agg *coverage.Aggregate, canon Canonicalizer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tracefile: %w", err)
	}
	defer f.Close()
	if err := Read(f, agg, canon); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func newRecord(path string, canon Canonicalizer) *record {
	if canon != nil {
		if p, ok := canon.Canonical(path); ok {
			path = p
		}
	}
	return &record{
		path:    path,
		lines:   make(map[int]int64),
		fnLines: make(map[string]int),
		fnHits:  make(map[string]int64),
	}
}

var errUnknown = errors.New("unknown record")

func (r *record) add(instr, data string) error {
	switch instr {
	case "DA":
		// DA:<line>,<count>[,<checksum>]
		fields := strings.Split(data, ",")
		if len(fields) < 2 {
			return fmt.Errorf("want line,count")
		}
		line, err := strconv.Atoi(fields[0])
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		r.lines[line] += n
	case "FN":
		num, name, ok := strings.Cut(data, ",")
		if !ok {
			return fmt.Errorf("want line,name")
		}
		line, err := strconv.Atoi(num)
		if err != nil {
			return err
		}
		if _, seen := r.fnLines[name]; !seen {
			r.fnLines[name] = line
		}
	case "FNDA":
		num, name, ok := strings.Cut(data, ",")
		if !ok {
			return fmt.Errorf("want count,name")
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return err
		}
		r.fnHits[name] += n
	case "FNF", "FNH", "LF", "LH":
	default:
		return errUnknown
	}
	return nil
}

func (r *record) fold(agg *coverage.Aggregate) {
	entry := agg.Entry(r.path)
	entry.AddLines(r.lines)
	for name, line := range r.fnLines {
		entry.AddFunction(name, line, r.fnHits[name])
	}
	for name, n := range r.fnHits {
		if _, ok := r.fnLines[name]; !ok {
			entry.AddFunction(name, 0, n)
		}
	}
}
