package engine

import "sync/atomic"

// Clock counts interpreter steps.
//
// Only the goroutine driving the interpreter ticks the clock, but Current is
// safe to call from elsewhere so a progress reporter can poll a running
// interpreter.
type Clock struct {
	n atomic.Int64
}

// NewClock creates a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Tick advances the clock and returns the new count.
func (c *Clock) Tick() int {
	return int(c.n.Add(1))
}

// Current returns the count without advancing it.
func (c *Clock) Current() int {
	return int(c.n.Load())
}

// Reset returns the clock to 0.
func (c *Clock) Reset() {
	c.n.Store(0)
}
