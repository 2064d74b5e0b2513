package engine

import (
	"time"

	"go-rehearse/timeline"
)

// Phase is the state of the practice gate
type Phase int

const (
	Idle Phase = iota
	AwaitingMatch
)

func (p Phase) String() string {
	if p == AwaitingMatch {
		return "awaiting"
	}
	return "idle"
}

// InputState is the part of the aggregator the gate reads
type InputState interface {
	Snapshot() (held, touched timeline.PitchSet)
	BeginAttempt()
}

// Gate halts the clock at each onset until the learner plays it.
//
// While Idle it scans the span the clock is about to cross for onsets.
// When it finds some it holds the cursor and waits until the held keys
// equal the awaited set and every awaited key was struck during the
// attempt.
type Gate struct {
	tl    *timeline.Timeline
	input InputState
	hand  timeline.Hand

	phase   Phase
	awaited timeline.PitchSet

	// upper bound of the last scanned window; scanning resumes after it
	scanned time.Duration
}

// NewGate creates an idle gate at position 0
func NewGate(tl *timeline.Timeline, input InputState) *Gate {
	g := &Gate{tl: tl, input: input}
	g.Reset(0)
	return g
}

// SetHand restricts onset scanning to one hand. HandNone scans all notes.
func (g *Gate) SetHand(h timeline.Hand) {
	g.hand = h
}

// Hand returns the current hand filter
func (g *Gate) Hand() timeline.Hand {
	return g.hand
}

// Phase returns the gate state
func (g *Gate) Phase() Phase {
	return g.phase
}

// Awaited returns the pitches the gate is waiting for
func (g *Gate) Awaited() timeline.PitchSet {
	return g.awaited
}

// Reset returns to Idle at cursor. At 0 the next scan starts just below
// zero so an onset at exactly 0 is caught.
func (g *Gate) Reset(cursor time.Duration) {
	g.phase = Idle
	g.awaited = timeline.PitchSet{}
	g.scanned = cursor
	if cursor == 0 {
		g.scanned = -time.Millisecond
	}
}

// Evaluate decides how far the cursor may move this tick, from cur
// towards next, and returns the allowed position. A newly found onset
// stops the cursor on it; later onsets in the same span wait for the
// following ticks.
func (g *Gate) Evaluate(cur, next time.Duration, s Surface) time.Duration {
	if g.phase == AwaitingMatch {
		if !g.satisfied() {
			g.reassert(s)
			return cur
		}
		g.phase = Idle
		g.awaited = timeline.PitchSet{}
		s.ReleaseAll()
	}

	at, onsets := g.tl.NextOnsets(g.scanned, next, g.hand)
	if onsets.Empty() {
		g.scanned = max(g.scanned, next)
		return next
	}

	g.scanned = at
	g.phase = AwaitingMatch
	g.awaited = onsets
	g.input.BeginAttempt()
	s.ReleaseAll()
	for _, p := range onsets.Pitches() {
		s.Highlight(p)
	}
	return max(cur, at)
}

func (g *Gate) satisfied() bool {
	held, touched := g.input.Snapshot()
	return held == g.awaited && g.awaited.SubsetOf(touched)
}

func (g *Gate) reassert(s Surface) {
	held, _ := g.input.Snapshot()
	for _, p := range g.awaited.Pitches() {
		if !held.Has(p) {
			s.Highlight(p)
		}
	}
}
