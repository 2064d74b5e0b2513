package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rehearse/assign"
	"go-rehearse/midi"
	"go-rehearse/timeline"
)

func newTestSession(mode Mode) (*Session, *fakeTransport, *recSurface, time.Time) {
	t0 := time.Unix(1000, 0)
	tr := &fakeTransport{length: ms(2000)}
	surf := &recSurface{}
	s := NewSession(chords(), "abc123", tr, Options{
		Mode:     mode,
		Surface:  surf,
		Autosave: time.Hour,
		Now:      func() time.Time { return t0 },
	})
	s.last = t0
	return s, tr, surf, t0
}

// flush runs queued commands the way the loop would
func flush(s *Session) {
	for len(s.cmds) > 0 {
		(<-s.cmds)()
		s.publish()
	}
}

func TestSessionPracticeWarmUpAndGate(t *testing.T) {
	s, _, surf, t0 := newTestSession(Practice{})
	assert := assert.New(t)

	s.tick(t0.Add(ms(1000)))
	s.tick(t0.Add(ms(2990)))
	st := s.State()
	assert.False(st.Ready)
	assert.Equal(Stopped, st.Run)

	s.tick(t0.Add(ms(3000)))
	st = s.State()
	assert.True(st.Ready)
	assert.Equal(Playing, st.Run)
	assert.Equal(time.Duration(0), st.Cursor)
	assert.Equal(AwaitingMatch, st.Phase)
	assert.Equal(timeline.NewPitchSet(60, 64), st.Awaited)

	s.tick(t0.Add(ms(3016)))
	assert.Equal(time.Duration(0), s.State().Cursor)

	s.HandleInput(midi.NoteEvent{Note: 60, On: true})
	s.HandleInput(midi.NoteEvent{Note: 64, On: true})
	s.tick(t0.Add(ms(3032)))

	st = s.State()
	assert.Equal(Idle, st.Phase)
	assert.Equal(ms(16), st.Cursor)
	assert.True(surf.lit.Empty())
}

func TestSessionListeningFollowsTransport(t *testing.T) {
	s, tr, _, t0 := newTestSession(Listening{})
	assert := assert.New(t)

	s.tick(t0.Add(ms(3000)))
	assert.Equal(1, tr.plays)
	assert.Equal(Playing, s.State().Run)

	tr.set(true, ms(500))
	s.tick(t0.Add(ms(3016)))
	assert.Equal(ms(500), s.State().Cursor)

	tr.set(false, ms(2000))
	s.tick(t0.Add(ms(3032)))
	assert.Equal(Stopped, s.State().Run)
}

func TestSessionTransportFailureLeavesClockStopped(t *testing.T) {
	s, tr, _, t0 := newTestSession(Listening{})
	tr.err = errors.New("no synth")

	s.tick(t0.Add(ms(3000)))

	st := s.State()
	assert.Equal(t, Stopped, st.Run)
	assert.Contains(t, st.Notice, "no synth")
}

func TestSessionTransportNotesOnlyInListening(t *testing.T) {
	s, _, _, _ := newTestSession(Practice{})

	s.NoteOn(60)
	held, _ := s.input.Snapshot()
	assert.True(t, held.Empty())

	s.applyMode(Listening{})
	s.NoteOn(60)
	held, _ = s.input.Snapshot()
	assert.Equal(t, timeline.NewPitchSet(60), held)

	s.NoteOff(60)
	held, _ = s.input.Snapshot()
	assert.True(t, held.Empty())
}

func TestSessionListeningIgnoresKeyboard(t *testing.T) {
	s, _, _, _ := newTestSession(Listening{})

	s.HandleInput(midi.NoteEvent{Note: 60, On: true})

	held, _ := s.input.Snapshot()
	assert.True(t, held.Empty())
}

func TestSessionControlsWaitForWarmUp(t *testing.T) {
	s, tr, _, _ := newTestSession(Listening{})

	s.seek(ms(500))
	s.togglePlay()

	assert.Equal(t, time.Duration(0), s.clock.Cursor())
	assert.Equal(t, 0, tr.plays)
}

func TestSessionModeSwitchResetsGate(t *testing.T) {
	s, _, surf, t0 := newTestSession(Practice{})
	s.tick(t0.Add(ms(3000)))
	s.HandleInput(midi.NoteEvent{Note: 60, On: true})
	require.Equal(t, AwaitingMatch, s.gate.Phase())

	s.applyMode(Editing{})
	s.tick(t0.Add(ms(3016)))

	held, touched := s.input.Snapshot()
	assert := assert.New(t)
	assert.Equal(Idle, s.gate.Phase())
	assert.True(held.Empty())
	assert.True(touched.Empty())
	assert.True(surf.lit.Empty())
	assert.Equal(Stopped, s.State().Run)
}

func TestSessionTogglePlayInPractice(t *testing.T) {
	s, tr, _, t0 := newTestSession(Practice{})
	s.tick(t0.Add(ms(3000)))

	s.togglePlay()
	assert.Equal(t, Stopped, s.clock.Run())
	s.togglePlay()
	assert.Equal(t, Playing, s.clock.Run())
	assert.Equal(t, 0, tr.plays)
}

func TestSessionEditingAssignsBrush(t *testing.T) {
	s, _, _, _ := newTestSession(Editing{})
	saver := &fakeSaver{}
	s.saver = saver

	s.SetBrush(timeline.HandLeft)
	s.HandleInput(midi.NoteEvent{Note: 60, On: true})
	flush(s)

	assert := assert.New(t)
	assert.Equal(timeline.HandLeft, s.tl.Interval(0).Hand)
	assert.Equal(timeline.HandLeft, s.State().Brush)
	assert.True(s.dirty.Load())

	n, err := s.Save()
	require.NoError(t, err)
	assert.Equal(3, n)
	assert.Equal([]string{"abc123"}, saver.hashes)
	assert.False(s.dirty.Load())
	assert.Equal("saved hand assignments", s.State().Notice)
}

func TestSessionAssignMissReportsNotice(t *testing.T) {
	s, _, _, _ := newTestSession(Editing{})

	s.AssignHand(72, timeline.HandRight)
	flush(s)

	assert.Equal(t, "no sounding note to assign", s.State().Notice)
}

func TestSessionNothingToSave(t *testing.T) {
	s, _, _, _ := newTestSession(Editing{})
	s.saver = &fakeSaver{err: assign.ErrNothingToSave}

	_, err := s.Save()

	assert.ErrorIs(t, err, assign.ErrNothingToSave)
	assert.Equal(t, assign.ErrNothingToSave.Error(), s.State().Notice)
}

func TestSessionStopSavesPendingEdits(t *testing.T) {
	s, tr, _, _ := newTestSession(Editing{})
	saver := &fakeSaver{}
	s.saver = saver

	assert.Equal(t, 2, s.assignSounding(timeline.HandRight))
	s.Stop()

	assert.Equal(t, 1, saver.calls())
	assert.False(t, tr.IsPlaying())
}

func TestSessionNoAutosaveAfterStop(t *testing.T) {
	tr := &fakeTransport{length: ms(2000)}
	saver := &fakeSaver{}
	s := NewSession(chords(), "abc123", tr, Options{
		Mode:     Editing{},
		Saver:    saver,
		Autosave: ms(50),
	})

	assert.Equal(t, 2, s.assignSounding(timeline.HandLeft))
	s.Stop()
	assert.Equal(t, 1, saver.calls())

	time.Sleep(ms(200))
	assert.Equal(t, 1, saver.calls())
}

func TestSessionStopClosesInputAndTransport(t *testing.T) {
	tr := &fakeTransport{length: ms(2000)}
	s := NewSession(chords(), "abc123", tr, Options{})
	in := newFakeInput("kbd")

	s.Start()
	s.AttachInput(in)
	in.ch <- midi.NoteEvent{Note: 60, On: true}
	tr.set(true, 0)
	s.Stop()
	s.Stop()

	assert := assert.New(t)
	assert.True(in.closed.Load())
	assert.False(tr.IsPlaying())
	assert.Empty(s.State().Input)
}

func TestSessionAttachReplacesAndDetaches(t *testing.T) {
	s, _, _, _ := newTestSession(Practice{})
	first, second := newFakeInput("a"), newFakeInput("b")

	s.AttachInput(first)
	s.AttachInput(second)
	assert.True(t, first.closed.Load())

	s.DetachInput("a")
	assert.False(t, second.closed.Load())

	s.DetachInput("b")
	flush(s)
	assert.True(t, second.closed.Load())
	assert.Empty(t, s.State().Input)
}

func TestSessionDetachKeepsGateWaiting(t *testing.T) {
	s, _, _, t0 := newTestSession(Practice{})
	in := newFakeInput("kbd")
	s.AttachInput(in)

	s.tick(t0.Add(ms(3000)))
	s.HandleInput(midi.NoteEvent{Note: 60, On: true})
	s.HandleInput(midi.NoteEvent{Note: 64, On: true})
	s.tick(t0.Add(ms(3016)))
	s.HandleInput(midi.NoteEvent{Note: 60, On: false})
	s.HandleInput(midi.NoteEvent{Note: 64, On: false})
	s.clock.ResyncTo(ms(990))
	s.tick(t0.Add(ms(3032)))

	assert := assert.New(t)
	st := s.State()
	require.Equal(t, AwaitingMatch, st.Phase)
	assert.Equal(ms(1000), st.Cursor)
	assert.Equal(timeline.NewPitchSet(48, 67), st.Awaited)

	s.HandleInput(midi.NoteEvent{Note: 48, On: true})
	s.DetachInput("kbd")
	flush(s)
	s.tick(t0.Add(ms(3048)))

	st = s.State()
	assert.Equal(AwaitingMatch, st.Phase)
	assert.Equal(ms(1000), st.Cursor)
	assert.Equal(timeline.NewPitchSet(48, 67), st.Awaited)
	held, _ := s.input.Snapshot()
	assert.True(held.Empty())
	assert.True(in.closed.Load())
}
