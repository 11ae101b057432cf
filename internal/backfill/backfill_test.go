package backfill

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tturner/pccov/internal/coverage"
)

type fakeDisassembler struct {
	out   map[string]string
	err   error
	calls []string
}

func (f *fakeDisassembler) Disassemble(_ context.Context, path string) ([]byte, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out[path]), nil
}

const listing = `main:
00000:   1  getgname "x"
00004:   2  lambda function g(a)
00009:   6  pop
Source notes:
g:
00000:   3  getarg 0
00002:   4  return
Source notes:
`

func TestBackfillInsertsZeroCounts(t *testing.T) {
	dis := &fakeDisassembler{out: map[string]string{"/src/a.js": listing}}
	entry := coverage.NewFileAggregate()

	res, err := New(dis, nil).Backfill(context.Background(), "/src/a.js", entry)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if res.Lines != 5 || res.Functions != 1 {
		t.Errorf("result = %+v", res)
	}
	want := []coverage.LineCount{{Line: 1}, {Line: 2}, {Line: 3}, {Line: 4}, {Line: 6}}
	if got := entry.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %+v", got)
	}
	if fn, ok := entry.Function("g"); !ok || fn.Line != 2 || fn.Count != 0 {
		t.Errorf("g = %+v (%v)", fn, ok)
	}
}

func TestBackfillKeepsDynamicData(t *testing.T) {
	dis := &fakeDisassembler{out: map[string]string{"/src/a.js": listing}}
	entry := coverage.NewFileAggregate()
	entry.AddLines(map[int]int64{2: 9, 50: 1})
	entry.AddFunction("g", 7, 4)

	if _, err := New(dis, nil).Backfill(context.Background(), "/src/a.js", entry); err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n, _ := entry.Line(2); n != 9 {
		t.Errorf("line 2 = %d, dynamic count must survive", n)
	}
	if n, ok := entry.Line(50); !ok || n != 1 {
		t.Errorf("line 50 = %d (%v), lines absent from the listing must survive", n, ok)
	}
	if fn, _ := entry.Function("g"); fn.Line != 7 || fn.Count != 4 {
		t.Errorf("g = %+v, existing function must not change", fn)
	}
}

func TestBackfillFailures(t *testing.T) {
	tests := []struct {
		name string
		dis  *fakeDisassembler
		want error
	}{
		{"disassembler error", &fakeDisassembler{err: errors.New("exit status 3")}, nil},
		{"empty output", &fakeDisassembler{out: map[string]string{}}, ErrNoListing},
		{"no instruction zero", &fakeDisassembler{out: map[string]string{"/a.js": "SyntaxError: bad\n"}}, ErrNoListing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := coverage.NewFileAggregate()
			entry.AddLines(map[int]int64{1: 1})
			_, err := New(tt.dis, nil).Backfill(context.Background(), "/a.js", entry)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if got := entry.Lines(); len(got) != 1 || got[0].Count != 1 {
				t.Errorf("entry modified on failure: %+v", got)
			}
		})
	}
}
