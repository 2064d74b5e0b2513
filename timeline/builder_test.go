package timeline

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// msPerTick makes one tick equal one millisecond
func msPerTick(tick int64) int64 { return tick * 1000 }

func on(tick int64, key uint8) Event {
	return Event{Tick: tick, Msg: gomidi.NoteOn(0, key, 100)}
}

func off(tick int64, key uint8) Event {
	return Event{Tick: tick, Msg: gomidi.NoteOff(0, key)}
}

func TestBuildPairsOnsetsFIFO(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{{
			on(100, 60),
			on(200, 60),
			off(300, 60),
			off(400, 60),
		}},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	assert := assert.New(t)
	require.Equal(t, 2, tl.Len())
	assert.Equal(NoteInterval{Pitch: 60, On: 100 * time.Millisecond, Off: 300 * time.Millisecond}, tl.Interval(0))
	assert.Equal(NoteInterval{Pitch: 60, On: 200 * time.Millisecond, Off: 400 * time.Millisecond}, tl.Interval(1))
}

func TestBuildTreatsZeroVelocityAsOffset(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{{
			on(0, 64),
			{Tick: 250, Msg: gomidi.NoteOn(0, 64, 0)},
		}},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, 250*time.Millisecond, tl.Interval(0).Off)
}

func TestBuildDropsUnterminatedOnsets(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{{
			on(0, 60),
			on(10, 62),
			off(20, 60),
		}},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, uint8(60), tl.Interval(0).Pitch)
}

func TestBuildIgnoresStrayOffsets(t *testing.T) {
	seq := Sequence{
		Tracks:       []Track{{off(5, 60), on(10, 60), off(20, 60)}},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, 10*time.Millisecond, tl.Interval(0).On)
}

func TestBuildPairsAcrossTracksInTickOrder(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{
			{on(0, 60), off(50, 60)},
			{on(20, 60), off(80, 60)},
		},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	assert := assert.New(t)
	require.Equal(t, 2, tl.Len())
	assert.Equal(0*time.Millisecond, tl.Interval(0).On)
	assert.Equal(50*time.Millisecond, tl.Interval(0).Off)
	assert.Equal(20*time.Millisecond, tl.Interval(1).On)
	assert.Equal(80*time.Millisecond, tl.Interval(1).Off)
}

func TestBuildKeepsOnsetBeforeOffset(t *testing.T) {
	seq := Sequence{
		Tracks:       []Track{{on(10, 60), off(10, 60)}},
		TickToMicros: msPerTick,
	}

	tl := Build(seq)

	require.Equal(t, 1, tl.Len())
	iv := tl.Interval(0)
	assert.Less(t, iv.On, iv.Off)
}

func TestBuildIsDeterministic(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{
			{on(0, 60), on(0, 64), off(100, 64), off(100, 60)},
			{on(0, 48), off(200, 48)},
		},
		TickToMicros: msPerTick,
	}

	assert.Equal(t, Build(seq).Intervals(), Build(seq).Intervals())
}

func TestBuildEmptySequence(t *testing.T) {
	tl := Build(Sequence{TickToMicros: msPerTick})

	assert := assert.New(t)
	assert.Equal(0, tl.Len())
	assert.Equal(time.Duration(0), tl.Duration())
	lo, hi := tl.PitchRange()
	assert.Equal(DefaultLowPitch, lo)
	assert.Equal(DefaultHighPitch, hi)
}

func TestFromSMFReadsNotes(t *testing.T) {
	s := smf.New()
	var tr smf.Track
	tr.Add(0, gomidi.NoteOn(0, 60, 90))
	tr.Add(960, gomidi.NoteOff(0, 60))
	tr.Add(0, gomidi.NoteOn(0, 67, 90))
	tr.Add(480, gomidi.NoteOn(0, 67, 0))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	parsed, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	tl := Build(FromSMF(parsed))

	assert := assert.New(t)
	require.Equal(t, 2, tl.Len())
	first, second := tl.Interval(0), tl.Interval(1)
	assert.Equal(uint8(60), first.Pitch)
	assert.Equal(uint8(67), second.Pitch)
	assert.Less(first.On, first.Off)
	assert.LessOrEqual(first.On, second.On)
	assert.Less(second.On, second.Off)
}
