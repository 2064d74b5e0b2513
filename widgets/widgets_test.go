package widgets

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rehearse/theme"
	"go-rehearse/timeline"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestNoteNames(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("C4", NoteName(60))
	assert.Equal("A0", NoteName(21))
	assert.Equal("C#-1", NoteName(1))
	assert.True(IsBlack(61))
	assert.False(IsBlack(64))
}

func TestKeyStates(t *testing.T) {
	states := KeyStates(60, 64, timeline.NewPitchSet(60, 62), timeline.NewPitchSet(62, 64))

	assert.Equal(t, []KeyState{KeyLit, KeyIdle, KeyAwaited, KeyIdle, KeyAwaited}, states)
	assert.Nil(t, KeyStates(64, 60, timeline.PitchSet{}, timeline.PitchSet{}))
}

func TestOctaveLabels(t *testing.T) {
	assert.Equal(t, "  C4"+strings.Repeat(" ", 10)+"C", OctaveLabels(58, 72))
	assert.Equal(t, "C", OctaveLabels(60, 60))
}

func TestRollGrid(t *testing.T) {
	notes := []timeline.NoteInterval{
		{Pitch: 60, On: 0, Off: ms(250), Hand: timeline.HandLeft},
		{Pitch: 62, On: ms(300), Off: ms(400), Hand: timeline.HandRight},
		{Pitch: 90, On: 0, Off: ms(1000)},
	}

	grid := RollGrid(notes, 60, 62, 0, ms(400), 4)
	require.Len(t, grid, 4)

	assert := assert.New(t)
	// bottom row is [0,100)
	assert.Equal(Cell{Note: true, Onset: true, Hand: timeline.HandLeft}, grid[3][0])
	assert.Equal(Cell{Note: true, Hand: timeline.HandLeft}, grid[2][0])
	assert.Equal(Cell{Note: true, Hand: timeline.HandLeft}, grid[1][0])
	assert.Equal(Cell{}, grid[0][0])
	assert.Equal(Cell{Note: true, Onset: true, Hand: timeline.HandRight}, grid[0][2])
	assert.Equal(Cell{}, grid[3][1])
}

func TestRenderRollShape(t *testing.T) {
	th := theme.New(nil)
	grid := RollGrid(nil, 60, 71, 0, time.Second, 3)

	lines := strings.Split(RenderRoll(grid, 60, th), "\n")

	assert.Len(t, lines, 4)
	assert.Nil(t, RollGrid(nil, 60, 71, 0, 0, 3))
}
