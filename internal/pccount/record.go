// Package pccount decodes the per-test execution records written by the
// script engine's pccount instrumentation.
//
// One record is one JSON array on one line:
//
//	["<base dir>", <entry>, <entry>, ...]
//
// where an entry is [source, contents...] or {source, summary, opcodes}.
// source is {file, name, line, totals}; contents is null (no data), a
// {text, opcodes} object, a bare opcode list, or bare {line, counts} opcodes.
package pccount

import (
	"errors"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON    = errors.New("invalid JSON")
	ErrNotArray       = errors.New("record is not an array")
	ErrMissingBaseDir = errors.New("missing base directory")
)

// Opcode is one instrumented execution point.
type Opcode struct {
	Line  int
	Count int64
}

// Script is one instrumented script within a record.
type Script struct {
	File   string
	Name   string
	Line   int
	Totals int64
	// HasOpcodes is false for no-data placeholders; such scripts still
	// contribute function identity.
	HasOpcodes bool
	Opcodes    []Opcode
}

// Record is one test run's payload.
type Record struct {
	Base    string
	Scripts []Script
	// Skipped counts entries that were not recognisable scripts.
	Skipped int
}

// Decode parses one record line. Only structural problems with the record
// as a whole are errors; unrecognisable entries are counted in Skipped.
func Decode(line []byte) (Record, error) {
	if !gjson.ValidBytes(line) {
		return Record{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(line)
	if !root.IsArray() {
		return Record{}, ErrNotArray
	}
	elems := root.Array()
	if len(elems) == 0 || elems[0].Type != gjson.String {
		return Record{}, ErrMissingBaseDir
	}

	rec := Record{Base: elems[0].String()}
	for _, e := range elems[1:] {
		s, ok := decodeScript(e)
		if !ok {
			rec.Skipped++
			continue
		}
		rec.Scripts = append(rec.Scripts, s)
	}
	return rec, nil
}

func decodeScript(e gjson.Result) (Script, bool) {
	var source gjson.Result
	var contents []gjson.Result

	switch {
	case e.IsArray():
		parts := e.Array()
		if len(parts) == 0 {
			return Script{}, false
		}
		source = parts[0]
		contents = parts[1:]
	case e.IsObject():
		source = e.Get("source")
		contents = []gjson.Result{e.Get("summary"), e.Get("opcodes")}
	default:
		return Script{}, false
	}

	file := source.Get("file")
	if !source.IsObject() || file.Type != gjson.String || file.String() == "" {
		return Script{}, false
	}

	s := Script{
		File:   file.String(),
		Name:   source.Get("name").String(),
		Line:   int(source.Get("line").Int()),
		Totals: ExecCount(source.Get("totals")),
	}
	for _, c := range contents {
		addContents(&s, c)
	}
	return s, true
}

func addContents(s *Script, c gjson.Result) {
	switch {
	case !c.Exists() || c.Type == gjson.Null:
		return
	case c.IsArray():
		s.HasOpcodes = true
		addOpcodes(s, c)
	case c.IsObject():
		if ops := c.Get("opcodes"); ops.IsArray() {
			s.HasOpcodes = true
			addOpcodes(s, ops)
			return
		}
		if c.Get("line").Exists() && c.Get("counts").Exists() {
			s.HasOpcodes = true
			addOpcode(s, c)
		}
	}
}

func addOpcodes(s *Script, ops gjson.Result) {
	ops.ForEach(func(_, op gjson.Result) bool {
		addOpcode(s, op)
		return true
	})
}

func addOpcode(s *Script, op gjson.Result) {
	line := op.Get("line")
	if !op.IsObject() || line.Type != gjson.Number {
		return
	}
	s.Opcodes = append(s.Opcodes, Opcode{
		Line:  int(line.Int()),
		Count: ExecCount(op.Get("counts")),
	})
}

// ExecCount sums every execution-kind bucket of a counts object. How a line
// was executed does not matter, only how often.
func ExecCount(counts gjson.Result) int64 {
	var sum int64
	counts.ForEach(func(_, v gjson.Result) bool {
		sum += v.Int()
		return true
	})
	return sum
}
