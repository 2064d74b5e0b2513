package engine

import (
	"time"
)

// Scrub drag scale: vertical pixels per millisecond
const ScrubPixelsPerMilli = 0.1

// DefaultStep is the distance of a step forward or back
const DefaultStep = 10 * time.Second

// Seeker is the single entry point for repositioning. Every seek clamps
// the target, moves the transport, resyncs the clock (which resets the
// gate and the aggregator) and then applies the mode's resume policy.
type Seeker struct {
	clock *Clock
	tr    Transport
	mode  Mode

	dragging   bool
	wasPlaying bool
	pressAt    time.Duration
}

// NewSeeker creates a seeker in Listening mode
func NewSeeker(clock *Clock, tr Transport) *Seeker {
	return &Seeker{clock: clock, tr: tr, mode: Listening{}}
}

// SetMode changes the resume policy
func (s *Seeker) SetMode(m Mode) {
	s.mode = m
}

// Dragging reports whether a scrub drag is in progress
func (s *Seeker) Dragging() bool {
	return s.dragging
}

// Seek jumps to target
func (s *Seeker) Seek(target time.Duration) error {
	if s.dragging {
		s.DragTo(target)
		return nil
	}
	at := clamp(target, 0, s.clock.Duration())

	switch s.mode.(type) {
	case Listening:
		was := s.tr.IsPlaying()
		if was {
			s.tr.Stop()
		}
		s.tr.SetPosition(at)
		s.clock.ResyncTo(at)
		if was {
			return s.tr.Play()
		}
	case Practice:
		s.tr.SetPosition(at)
		s.clock.ResyncTo(at)
	case Editing:
		s.tr.SetPosition(at)
		s.clock.ResyncTo(at)
		s.clock.SetRun(Stopped)
	}
	return nil
}

// Step moves the cursor by delta
func (s *Seeker) Step(delta time.Duration) error {
	return s.Seek(s.clock.Cursor() + delta)
}

// BeginDrag pauses everything and remembers the play state
func (s *Seeker) BeginDrag() {
	if s.dragging {
		return
	}
	s.dragging = true
	s.wasPlaying = s.tr.IsPlaying()
	if s.wasPlaying {
		s.tr.Stop()
	}
	s.pressAt = s.clock.Cursor()
	s.clock.SetRun(Scrubbing)
	s.clock.ResyncTo(s.pressAt)
}

// DragTo moves to target while dragging
func (s *Seeker) DragTo(target time.Duration) {
	if !s.dragging {
		return
	}
	at := clamp(target, 0, s.clock.Duration())
	s.tr.SetPosition(at)
	s.clock.ResyncTo(at)
}

// DragBy moves relative to where the drag started. Dragging down moves
// back in time.
func (s *Seeker) DragBy(dyPixels float64) {
	offset := time.Duration(dyPixels / ScrubPixelsPerMilli * float64(time.Millisecond))
	s.DragTo(s.pressAt - offset)
}

// EndDrag applies the mode's resume policy
func (s *Seeker) EndDrag() error {
	if !s.dragging {
		return nil
	}
	s.dragging = false

	switch s.mode.(type) {
	case Listening:
		if s.wasPlaying {
			s.clock.SetRun(Playing)
			return s.tr.Play()
		}
		s.clock.SetRun(Stopped)
	case Practice:
		s.clock.SetRun(Playing)
	case Editing:
		s.clock.SetRun(Stopped)
	}
	return nil
}

// Cancel abandons a drag without resuming
func (s *Seeker) Cancel() {
	s.dragging = false
	s.wasPlaying = false
}
