package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-rehearse/midi"
	"go-rehearse/timeline"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// chords: {60,64} at 0 (right), {48 left, 67 unassigned} at 1000
func chords() *timeline.Timeline {
	return timeline.New([]timeline.NoteInterval{
		{Pitch: 60, On: 0, Off: ms(500), Hand: timeline.HandRight},
		{Pitch: 64, On: 0, Off: ms(500), Hand: timeline.HandRight},
		{Pitch: 48, On: ms(1000), Off: ms(1500), Hand: timeline.HandLeft},
		{Pitch: 67, On: ms(1000), Off: ms(1500)},
	}, ms(2000))
}

type recSurface struct {
	lit   timeline.PitchSet
	calls []string
}

func (r *recSurface) Highlight(p uint8) {
	r.lit.Add(p)
	r.calls = append(r.calls, fmt.Sprintf("hl:%d", p))
}

func (r *recSurface) Release(p uint8) {
	r.lit.Remove(p)
	r.calls = append(r.calls, fmt.Sprintf("rel:%d", p))
}

func (r *recSurface) ReleaseAll() {
	r.lit = timeline.PitchSet{}
	r.calls = append(r.calls, "all")
}

type fakeTransport struct {
	mu      sync.Mutex
	playing bool
	pos     time.Duration
	length  time.Duration
	plays   int
	stops   int
	err     error
}

func (f *fakeTransport) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.playing = true
	f.plays++
	return nil
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.stops++
}

func (f *fakeTransport) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeTransport) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransport) SetPosition(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = d
}

func (f *fakeTransport) Length() time.Duration {
	return f.length
}

func (f *fakeTransport) set(playing bool, pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = playing
	f.pos = pos
}

type resetLog struct {
	at []time.Duration
}

func (r *resetLog) Reset(cursor time.Duration) {
	r.at = append(r.at, cursor)
}

type fakeInput struct {
	id     string
	ch     chan midi.NoteEvent
	once   sync.Once
	closed atomic.Bool
}

func newFakeInput(id string) *fakeInput {
	return &fakeInput{id: id, ch: make(chan midi.NoteEvent, 8)}
}

func (f *fakeInput) ID() string                        { return f.id }
func (f *fakeInput) NoteEvents() <-chan midi.NoteEvent { return f.ch }

func (f *fakeInput) Close() error {
	f.once.Do(func() {
		f.closed.Store(true)
		close(f.ch)
	})
	return nil
}

type fakeSaver struct {
	mu     sync.Mutex
	hashes []string
	err    error
}

func (f *fakeSaver) Save(hash string, tl *timeline.Timeline) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes = append(f.hashes, hash)
	if f.err != nil {
		return 0, f.err
	}
	return tl.Labeled(), nil
}

func (f *fakeSaver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hashes)
}
