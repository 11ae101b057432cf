package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewProgressBarTo(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 100, "test")
	if cur, total := pb.Current(); cur != 0 || total != 100 {
		t.Errorf("current/total = %d/%d", cur, total)
	}
	if !pb.enabled {
		t.Error("should be enabled by default")
	}
}

func TestProgressBar_Disable(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 10, "test")
	pb.Disable()
	pb.Update(10)
	pb.Finish()
	if buf.Len() > 0 {
		t.Error("disabled bar should not produce output")
	}
}

func TestProgressBar_UpdateAndGrow(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 0, "")
	pb.AddTotal(4)
	pb.Update(3)
	pb.AddTotal(2)
	pb.Increment()
	if cur, total := pb.Current(); cur != 4 || total != 6 {
		t.Errorf("current/total = %d/%d, want 4/6", cur, total)
	}
}

func TestProgressBar_Finish(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 2, "Backfill")
	pb.Update(2)
	pb.Finish()

	out := buf.String()
	if !strings.HasPrefix(out, "\rBackfill [") {
		t.Errorf("output should start with description: %q", out)
	}
	if !strings.Contains(out, "2/2 (100.0%)") {
		t.Errorf("output missing completion: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should end the line")
	}
}

func TestProgressBar_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBarTo(&buf, 0, "")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.AddTotal(1)
			pb.Increment()
		}()
	}
	wg.Wait()
	if cur, total := pb.Current(); cur != 50 || total != 50 {
		t.Errorf("current/total = %d/%d", cur, total)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCounter(t *testing.T) {
	var buf bytes.Buffer
	c := NewCounterTo(&buf, "Records", time.Hour)
	c.Update(1, "")
	c.Update(2, "throttled")
	c.Finish()

	if got := buf.String(); got != "\rRecords: 1\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	c = NewCounterTo(&buf, "Records", 0)
	c.Update(7, "3 files")
	c.Finish()
	if got := buf.String(); got != "\rRecords: 7 | 3 files\n" {
		t.Errorf("output with message = %q", got)
	}

	buf.Reset()
	c = NewCounterTo(&buf, "Records", 0)
	c.Finish()
	if buf.Len() != 0 {
		t.Error("Finish without updates should print nothing")
	}
}
