// Package progress adapts schollz/progressbar to the engine's two-method
// Progress Reporter capability: new(total_bytes) and inc(n).
package progress

import "github.com/schollz/progressbar/v3"

// Reporter is a sink that accepts byte-count increments. The core only
// ever calls Inc; it never inspects the total or renders anything itself.
type Reporter interface {
	Inc(n int)
}

// Bar is a Reporter backed by a terminal progress bar.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a Bar tracking totalBytes of expected progress.
func New(totalBytes int64, description string) *Bar {
	return &Bar{
		bar: progressbar.DefaultBytes(totalBytes, description),
	}
}

// Inc advances the bar by n bytes.
func (b *Bar) Inc(n int) {
	_ = b.bar.Add(n)
}

// Noop is a Reporter that discards every increment, used by callers (and
// tests) that have no progress UI to drive.
type Noop struct{}

// Inc implements Reporter.
func (Noop) Inc(int) {}

// Counter is a Reporter stub for tests: it just accumulates the total
// bytes reported so an end-to-end test can assert on it.
type Counter struct {
	Total int
}

// Inc implements Reporter.
func (c *Counter) Inc(n int) {
	c.Total += n
}
