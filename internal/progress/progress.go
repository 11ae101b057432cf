// Package progress draws single-line progress indicators on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const throttle = 100 * time.Millisecond

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ProgressBar tracks work whose size may grow while it runs, such as
// backfill tasks queued by a directory sweep. Safe for concurrent use.
type ProgressBar struct {
	mu          sync.Mutex
	total       int64
	current     int64
	startTime   time.Time
	lastUpdate  time.Time
	output      io.Writer
	enabled     bool
	description string
}

// NewProgressBar creates a progress bar on stderr, enabled only when stderr
// is a terminal.
func NewProgressBar(total int64, description string) *ProgressBar {
	p := NewProgressBarTo(os.Stderr, total, description)
	p.enabled = IsTerminal(os.Stderr)
	return p
}

// NewProgressBarTo creates an enabled progress bar writing to w.
func NewProgressBarTo(w io.Writer, total int64, description string) *ProgressBar {
	now := time.Now()
	return &ProgressBar{
		total:       total,
		startTime:   now,
		lastUpdate:  now,
		output:      w,
		enabled:     true,
		description: description,
	}
}

// Disable disables the progress bar
func (p *ProgressBar) Disable() {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
}

// AddTotal grows the amount of expected work.
func (p *ProgressBar) AddTotal(n int64) {
	p.mu.Lock()
	p.total += n
	p.render(false)
	p.mu.Unlock()
}

// Update advances the bar by n.
func (p *ProgressBar) Update(n int64) {
	p.mu.Lock()
	p.current += n
	p.render(false)
	p.mu.Unlock()
}

// Increment advances the bar by one.
func (p *ProgressBar) Increment() {
	p.Update(1)
}

// Current returns completed and expected work.
func (p *ProgressBar) Current() (current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.total
}

func (p *ProgressBar) render(force bool) {
	if !p.enabled {
		return
	}

	now := time.Now()
	if !force && now.Sub(p.lastUpdate) < throttle && p.current < p.total {
		return
	}
	p.lastUpdate = now

	var percent float64
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total) * 100
	}
	elapsed := time.Since(p.startTime)

	var eta time.Duration
	if p.current > 0 && p.total > p.current {
		rate := float64(p.current) / elapsed.Seconds()
		if rate > 0 {
			eta = time.Duration(float64(p.total-p.current)/rate) * time.Second
		}
	}

	const barWidth = 40
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := make([]byte, barWidth)
	for i := range bar {
		switch {
		case i < filled:
			bar[i] = '='
		case i == filled:
			bar[i] = '>'
		default:
			bar[i] = '-'
		}
	}

	out := fmt.Sprintf("\r[%s] %d/%d (%.1f%%) | Elapsed: %s", bar, p.current, p.total, percent, formatDuration(elapsed))
	if p.description != "" {
		out = fmt.Sprintf("\r%s %s", p.description, out[1:])
	}
	if eta > 0 {
		out += fmt.Sprintf(" | ETA: %s", formatDuration(eta))
	}
	fmt.Fprint(p.output, out)
}

// Finish draws the final state and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.render(true)
	fmt.Fprint(p.output, "\n")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// Counter reports a running count without a known total, such as records
// read from a stream.
type Counter struct {
	mu          sync.Mutex
	output      io.Writer
	enabled     bool
	description string
	lastUpdate  time.Time
	interval    time.Duration
	drawn       bool
}

// NewCounter creates a counter on stderr, enabled only when stderr is a
// terminal.
func NewCounter(description string, interval time.Duration) *Counter {
	c := NewCounterTo(os.Stderr, description, interval)
	c.enabled = IsTerminal(os.Stderr)
	return c
}

// NewCounterTo creates an enabled counter writing to w.
func NewCounterTo(w io.Writer, description string, interval time.Duration) *Counter {
	return &Counter{
		output:      w,
		enabled:     true,
		description: description,
		interval:    interval,
	}
}

// Disable disables the counter.
func (c *Counter) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
}

// Update draws count, at most once per interval.
func (c *Counter) Update(count int64, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	now := time.Now()
	if c.drawn && now.Sub(c.lastUpdate) < c.interval {
		return
	}
	c.lastUpdate = now
	c.drawn = true

	out := fmt.Sprintf("\r%s: %d", c.description, count)
	if message != "" {
		out += " | " + message
	}
	fmt.Fprint(c.output, out)
}

// Finish ends the line if anything was drawn.
func (c *Counter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || !c.drawn {
		return
	}
	fmt.Fprint(c.output, "\n")
}
