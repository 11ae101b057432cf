package coverage

import (
	"reflect"
	"sync"
	"testing"
)

func TestAggregateClaim(t *testing.T) {
	agg := NewAggregate()

	f, ok := agg.Claim("/a.js")
	if !ok || f == nil {
		t.Fatal("first claim should succeed")
	}
	f.AddLines(map[int]int64{3: 9})

	if g, ok := agg.Claim("/a.js"); ok || g != nil {
		t.Fatal("second claim should fail")
	}
	if n, _ := agg.Entry("/a.js").Line(3); n != 9 {
		t.Errorf("Entry must return the claimed entry untouched, line 3 = %d", n)
	}
}

func TestAggregateConcurrentClaimHasOneWinner(t *testing.T) {
	agg := NewAggregate()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := agg.Claim("/same.js"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
}

func TestInsertNeverOverwrites(t *testing.T) {
	f := NewFileAggregate()
	f.AddLines(map[int]int64{1: 5})
	f.AddFunction("g", 1, 3)

	if f.InsertLine(1) {
		t.Error("InsertLine reported adding an existing line")
	}
	if !f.InsertLine(2) {
		t.Error("InsertLine should add a new line")
	}
	if f.InsertFunction("g", 40) {
		t.Error("InsertFunction reported adding an existing function")
	}
	if !f.InsertFunction("h", 2) {
		t.Error("InsertFunction should add a new function")
	}

	if got := f.Lines(); !reflect.DeepEqual(got, []LineCount{{1, 5}, {2, 0}}) {
		t.Errorf("lines = %+v", got)
	}
	want := []Function{{Name: "g", Line: 1, Count: 3}, {Name: "h", Line: 2}}
	if got := f.Functions(); !reflect.DeepEqual(got, want) {
		t.Errorf("functions = %+v, want %+v", got, want)
	}
}

func TestOrdering(t *testing.T) {
	f := NewFileAggregate()
	f.AddLines(map[int]int64{30: 1, 2: 1, 11: 0})
	f.InsertFunction("b", 5)
	f.InsertFunction("a", 5)
	f.InsertFunction("z", 1)

	var lines []int
	for _, lc := range f.Lines() {
		lines = append(lines, lc.Line)
	}
	if !reflect.DeepEqual(lines, []int{2, 11, 30}) {
		t.Errorf("line order = %v", lines)
	}
	var names []string
	for _, fn := range f.Functions() {
		names = append(names, fn.Name)
	}
	if !reflect.DeepEqual(names, []string{"z", "a", "b"}) {
		t.Errorf("function order = %v", names)
	}

	agg := NewAggregate()
	agg.Entry("/z")
	agg.Entry("/a")
	agg.Entry("/m")
	if got := agg.Paths(); !reflect.DeepEqual(got, []string{"/a", "/m", "/z"}) {
		t.Errorf("paths = %v", got)
	}
}

func TestStats(t *testing.T) {
	agg := NewAggregate()
	a := agg.Entry("/a.js")
	a.AddLines(map[int]int64{1: 2, 2: 0, 3: 1})
	a.AddFunction("f", 1, 2)
	a.InsertFunction("g", 3)
	b := agg.Entry("/b.js")
	b.InsertLine(1)

	if got := a.Stats(); got != (Stats{LinesFound: 3, LinesHit: 2, FuncsFound: 2, FuncsHit: 1}) {
		t.Errorf("a stats = %+v", got)
	}
	if got := agg.Stats(); got != (Stats{LinesFound: 4, LinesHit: 2, FuncsFound: 2, FuncsHit: 1}) {
		t.Errorf("total stats = %+v", got)
	}
	if agg.Len() != 2 || agg.Lookup("/b.js") == nil || agg.Lookup("/c.js") != nil {
		t.Errorf("Len/Lookup mismatch")
	}
}
