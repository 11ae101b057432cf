package pccount

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// LineError ties a decode failure to its 1-based input line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Reader iterates over the records of a line-delimited stream. Lines may be
// arbitrarily long; blank lines are skipped.
type Reader struct {
	br   *bufio.Reader
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 1<<20)}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record, or io.EOF once the stream is exhausted.
// Decode failures are returned as *LineError.
func (r *Reader) Next() (Record, error) {
	for {
		raw, err := r.br.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read record: %w", err)
		}
		r.line++

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return Record{}, fmt.Errorf("read record: %w", err)
			}
			continue
		}

		rec, decErr := Decode(trimmed)
		if decErr != nil {
			return Record{}, &LineError{Line: r.line, Err: decErr}
		}
		return rec, nil
	}
}
