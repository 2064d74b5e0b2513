package timeline

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Hand labels which hand plays an interval
type Hand int

const (
	HandNone Hand = iota
	HandLeft
	HandRight
)

func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "LEFT"
	case HandRight:
		return "RIGHT"
	}
	return ""
}

// ParseHand accepts LEFT or RIGHT in any case
func ParseHand(s string) (Hand, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEFT":
		return HandLeft, true
	case "RIGHT":
		return HandRight, true
	}
	return HandNone, false
}

// Default keyboard range when a sequence has no notes
const (
	DefaultLowPitch  uint8 = 60
	DefaultHighPitch uint8 = 72
)

// NoteInterval is one sounding note. On < Off always holds.
type NoteInterval struct {
	Pitch uint8
	On    time.Duration
	Off   time.Duration
	Hand  Hand
}

// Timeline is the ordered set of note intervals of a loaded sequence.
// Only hand labels change after construction.
type Timeline struct {
	intervals []NoteInterval // sorted by On, then Pitch
	duration  time.Duration

	mu sync.RWMutex // guards Hand fields
}

// New builds a timeline from intervals. length is the sequence length;
// the duration is extended to the last offset if that is later.
func New(intervals []NoteInterval, length time.Duration) *Timeline {
	sorted := make([]NoteInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].On != sorted[j].On {
			return sorted[i].On < sorted[j].On
		}
		return sorted[i].Pitch < sorted[j].Pitch
	})

	duration := length
	for _, iv := range sorted {
		if iv.Off > duration {
			duration = iv.Off
		}
	}
	return &Timeline{intervals: sorted, duration: duration}
}

// Len returns the number of intervals
func (t *Timeline) Len() int {
	return len(t.intervals)
}

// Duration is the total length of the sequence
func (t *Timeline) Duration() time.Duration {
	return t.duration
}

// Interval returns a copy of interval i
func (t *Timeline) Interval(i int) NoteInterval {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.intervals[i]
}

// Intervals returns a copy of all intervals
func (t *Timeline) Intervals() []NoteInterval {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NoteInterval, len(t.intervals))
	copy(out, t.intervals)
	return out
}

// SetHand labels interval i
func (t *Timeline) SetHand(i int, h Hand) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intervals[i].Hand = h
}

// Labeled counts intervals with a hand assigned
func (t *Timeline) Labeled() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, iv := range t.intervals {
		if iv.Hand != HandNone {
			n++
		}
	}
	return n
}

// NextOnsets returns the earliest onset time in (lo, hi] that passes the
// hand filter, and the pitches starting at exactly that time. The set is
// empty when the window holds no onset.
func (t *Timeline) NextOnsets(lo, hi time.Duration, filter Hand) (time.Duration, PitchSet) {
	var set PitchSet
	if hi <= lo {
		return hi, set
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	start := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].On > lo
	})
	at := hi
	for i := start; i < len(t.intervals) && t.intervals[i].On <= at; i++ {
		iv := t.intervals[i]
		if filter != HandNone && iv.Hand != filter {
			continue
		}
		if set.Empty() {
			at = iv.On
		}
		set.Add(iv.Pitch)
	}
	return at, set
}

// SoundingAt returns indexes of intervals with On <= at < Off
func (t *Timeline) SoundingAt(at time.Duration) []int {
	var out []int
	end := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].On > at
	})
	for i := 0; i < end; i++ {
		if t.intervals[i].Off > at {
			out = append(out, i)
		}
	}
	return out
}

// Window returns copies of intervals overlapping [from, to)
func (t *Timeline) Window(from, to time.Duration) []NoteInterval {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []NoteInterval
	for _, iv := range t.intervals {
		if iv.On >= to {
			break
		}
		if iv.Off > from {
			out = append(out, iv)
		}
	}
	return out
}

// PitchRange returns the lowest and highest pitch, or the default range
// when there are no notes.
func (t *Timeline) PitchRange() (lo, hi uint8) {
	if len(t.intervals) == 0 {
		return DefaultLowPitch, DefaultHighPitch
	}
	lo, hi = 127, 0
	for _, iv := range t.intervals {
		lo = min(lo, iv.Pitch)
		hi = max(hi, iv.Pitch)
	}
	return lo, hi
}
