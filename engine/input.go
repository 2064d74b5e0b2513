package engine

import (
	"sync"
	"time"

	"go-rehearse/timeline"
)

// CueKind is a presentation change queued by input
type CueKind int

const (
	CueHighlight CueKind = iota
	CueRelease
	CueReleaseAll
)

// Cue is one pending presentation change
type Cue struct {
	Kind  CueKind
	Pitch uint8
}

// Aggregator collects asynchronous key presses into the held and touched
// sets. Input threads mutate it under one mutex; the presentation changes
// they cause are queued as cues and applied by the tick loop.
type Aggregator struct {
	mu      sync.Mutex
	held    timeline.PitchSet
	touched timeline.PitchSet
	cues    []Cue
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Press marks pitch as held and struck. Pressing a held pitch does nothing.
func (a *Aggregator) Press(pitch uint8) bool {
	if pitch > 127 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.held.Has(pitch) {
		return false
	}
	a.held.Add(pitch)
	a.touched.Add(pitch)
	a.cues = append(a.cues, Cue{Kind: CueHighlight, Pitch: pitch})
	return true
}

// Release clears pitch from the held set. Releasing an unheld pitch does
// nothing.
func (a *Aggregator) Release(pitch uint8) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.held.Has(pitch) {
		return false
	}
	a.held.Remove(pitch)
	a.cues = append(a.cues, Cue{Kind: CueRelease, Pitch: pitch})
	return true
}

// Snapshot returns copies of the held and touched sets
func (a *Aggregator) Snapshot() (held, touched timeline.PitchSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.held, a.touched
}

// BeginAttempt forgets which pitches were struck so a new chord must be
// played from scratch. Keys still physically down stay held.
func (a *Aggregator) BeginAttempt() {
	a.mu.Lock()
	a.touched = timeline.PitchSet{}
	a.mu.Unlock()
}

// Reset clears both sets and replaces pending cues with a release-all
func (a *Aggregator) Reset(time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.held = timeline.PitchSet{}
	a.touched = timeline.PitchSet{}
	a.cues = append(a.cues[:0], Cue{Kind: CueReleaseAll})
}

// Drain returns and clears the pending cues
func (a *Aggregator) Drain() []Cue {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.cues) == 0 {
		return nil
	}
	out := a.cues
	a.cues = nil
	return out
}

// Apply replays cues onto a surface in order
func Apply(cues []Cue, s Surface) {
	for _, c := range cues {
		switch c.Kind {
		case CueHighlight:
			s.Highlight(c.Pitch)
		case CueRelease:
			s.Release(c.Pitch)
		case CueReleaseAll:
			s.ReleaseAll()
		}
	}
}
