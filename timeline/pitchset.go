package timeline

import "math/bits"

// PitchSet is a set of MIDI pitches (0-127). The zero value is empty and
// two sets compare equal with ==.
type PitchSet [2]uint64

// NewPitchSet returns a set holding the given pitches
func NewPitchSet(pitches ...uint8) PitchSet {
	var s PitchSet
	for _, p := range pitches {
		s.Add(p)
	}
	return s
}

// Add inserts p. Pitches above 127 are ignored.
func (s *PitchSet) Add(p uint8) {
	if p > 127 {
		return
	}
	s[p>>6] |= 1 << (p & 63)
}

// Remove deletes p
func (s *PitchSet) Remove(p uint8) {
	if p > 127 {
		return
	}
	s[p>>6] &^= 1 << (p & 63)
}

// Has reports whether p is in the set
func (s PitchSet) Has(p uint8) bool {
	if p > 127 {
		return false
	}
	return s[p>>6]&(1<<(p&63)) != 0
}

// Len returns the number of pitches in the set
func (s PitchSet) Len() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1])
}

// Empty reports whether the set has no pitches
func (s PitchSet) Empty() bool {
	return s[0] == 0 && s[1] == 0
}

// SubsetOf reports whether every pitch of s is also in other
func (s PitchSet) SubsetOf(other PitchSet) bool {
	return s[0]&^other[0] == 0 && s[1]&^other[1] == 0
}

// Pitches returns the members in ascending order
func (s PitchSet) Pitches() []uint8 {
	out := make([]uint8, 0, s.Len())
	for w := 0; w < 2; w++ {
		word := s[w]
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, uint8(w*64+b))
			word &= word - 1
		}
	}
	return out
}
