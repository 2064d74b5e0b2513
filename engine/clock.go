package engine

import (
	"time"

	"golang.org/x/exp/constraints"
)

// RunMode is whether the clock cursor is moving
type RunMode int

const (
	Stopped RunMode = iota
	Playing
	Scrubbing
)

func (r RunMode) String() string {
	switch r {
	case Playing:
		return "playing"
	case Scrubbing:
		return "scrubbing"
	}
	return "stopped"
}

// DefaultWarmUp is how long after session start the clock stays frozen
const DefaultWarmUp = 3000 * time.Millisecond

// Clock owns the cursor used for both rendering and gating.
//
// It either free-runs (Advance adds wall-clock deltas) or follows the
// transport (SyncTo overwrites the cursor with the transport position).
// Clock is not safe for concurrent use; the session tick loop owns it.
type Clock struct {
	cursor   time.Duration
	run      RunMode
	duration time.Duration

	warmUp  time.Duration
	started time.Time
	ready   bool

	resetters []Resetter
}

// NewClock creates a stopped clock at 0
func NewClock(duration, warmUp time.Duration, started time.Time) *Clock {
	return &Clock{
		duration: duration,
		warmUp:   warmUp,
		started:  started,
	}
}

// OnResync registers r to be reset on every ResyncTo
func (c *Clock) OnResync(r Resetter) {
	c.resetters = append(c.resetters, r)
}

// WarmUp reports whether the clock may run. It turns true once warmUp
// has passed since start and the sequence has non-zero duration.
func (c *Clock) WarmUp(now time.Time) bool {
	if !c.ready && c.duration > 0 && now.Sub(c.started) >= c.warmUp {
		c.ready = true
	}
	return c.ready
}

// Ready reports whether warm-up has completed
func (c *Clock) Ready() bool {
	return c.ready
}

// Cursor returns the current position
func (c *Clock) Cursor() time.Duration {
	return c.cursor
}

// Duration returns the sequence length
func (c *Clock) Duration() time.Duration {
	return c.duration
}

// Run returns the run mode
func (c *Clock) Run() RunMode {
	return c.run
}

// SetRun changes the run mode
func (c *Clock) SetRun(r RunMode) {
	c.run = r
}

// Advance moves the cursor by delta, clamped to the sequence
func (c *Clock) Advance(delta time.Duration) {
	c.cursor = clamp(c.cursor+delta, 0, c.duration)
}

// SyncTo overwrites the cursor with the transport position
func (c *Clock) SyncTo(pos time.Duration) {
	c.cursor = clamp(pos, 0, c.duration)
}

// ResyncTo repositions the cursor and resets every registered Resetter
func (c *Clock) ResyncTo(at time.Duration) {
	c.cursor = clamp(at, 0, c.duration)
	for _, r := range c.resetters {
		r.Reset(c.cursor)
	}
}

// AtEnd reports whether the cursor reached the end of the sequence
func (c *Clock) AtEnd() bool {
	return c.cursor >= c.duration
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
