package tui

import (
	"sync"

	"go-rehearse/timeline"
)

// Surface holds the highlighted keys. The session writes it from its tick
// loop; View reads it.
type Surface struct {
	mu  sync.Mutex
	lit timeline.PitchSet
}

func NewSurface() *Surface {
	return &Surface{}
}

func (s *Surface) Highlight(pitch uint8) {
	s.mu.Lock()
	s.lit.Add(pitch)
	s.mu.Unlock()
}

func (s *Surface) Release(pitch uint8) {
	s.mu.Lock()
	s.lit.Remove(pitch)
	s.mu.Unlock()
}

func (s *Surface) ReleaseAll() {
	s.mu.Lock()
	s.lit = timeline.PitchSet{}
	s.mu.Unlock()
}

// Keys returns the highlighted pitches
func (s *Surface) Keys() timeline.PitchSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lit
}
