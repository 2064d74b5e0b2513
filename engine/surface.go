package engine

import "time"

// Surface is the presentation side of the keyboard. The session calls it
// from the tick loop only.
type Surface interface {
	Highlight(pitch uint8)
	Release(pitch uint8)
	ReleaseAll()
}

// Transport is the external audio playback clock
type Transport interface {
	Play() error
	Stop()
	IsPlaying() bool
	Position() time.Duration
	SetPosition(time.Duration)
	Length() time.Duration
}

// Resetter is told when the clock is repositioned
type Resetter interface {
	Reset(cursor time.Duration)
}

type nopSurface struct{}

func (nopSurface) Highlight(uint8) {}
func (nopSurface) Release(uint8)   {}
func (nopSurface) ReleaseAll()     {}
