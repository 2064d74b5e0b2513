package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		msg  gomidi.Message
		want NoteEvent
		ok   bool
	}{
		{"note on", gomidi.NoteOn(1, 60, 90), NoteEvent{Note: 60, Velocity: 90, Channel: 1, On: true}, true},
		{"note off", gomidi.NoteOff(0, 62), NoteEvent{Note: 62}, true},
		{"zero velocity is release", gomidi.NoteOn(0, 64, 0), NoteEvent{Note: 64}, true},
		{"control change ignored", gomidi.ControlChange(0, 64, 127), NoteEvent{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Decode(c.msg)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through:0", "USB Piano MIDI 1", "Launchpad X MIDI"}

	assert := assert.New(t)
	assert.Equal(1, matchPort(names, "piano"))
	assert.Equal(0, matchPort(names, ""))
	assert.Equal(-1, matchPort(names, "organ"))
	assert.Equal(-1, matchPort(nil, ""))
}

type fakeInput struct {
	id     string
	ch     chan NoteEvent
	closed bool
}

func newFakeInput(id string) *fakeInput {
	return &fakeInput{id: id, ch: make(chan NoteEvent)}
}

func (f *fakeInput) ID() string                   { return f.id }
func (f *fakeInput) NoteEvents() <-chan NoteEvent { return f.ch }
func (f *fakeInput) Close() error {
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func testManager(ports *[]string, opened map[string]*fakeInput) *DeviceManager {
	dm := NewDeviceManager("piano", nil)
	dm.list = func() ([]string, error) { return *ports, nil }
	dm.open = func(name string) (Input, error) {
		in := newFakeInput(name)
		opened[name] = in
		return in, nil
	}
	return dm
}

func TestDeviceManagerHotPlug(t *testing.T) {
	ports := []string{"Midi Through:0"}
	opened := map[string]*fakeInput{}
	dm := testManager(&ports, opened)

	dm.scan()
	assert.Empty(t, dm.Inputs())

	ports = append(ports, "USB Piano MIDI 1")
	dm.scan()
	ev := <-dm.Events()
	assert.Equal(t, DeviceConnected, ev.Type)
	assert.Equal(t, "USB Piano MIDI 1", ev.ID)
	require.NotNil(t, ev.Input)

	// still present: no duplicate event
	dm.scan()
	assert.Len(t, dm.Events(), 0)

	ports = ports[:1]
	dm.scan()
	ev = <-dm.Events()
	assert.Equal(t, DeviceDisconnected, ev.Type)
	assert.True(t, opened["USB Piano MIDI 1"].closed)
	assert.Empty(t, dm.Inputs())
}

func TestDeviceManagerSkipsFailedScan(t *testing.T) {
	dm := NewDeviceManager("", nil)
	dm.list = func() ([]string, error) { return nil, ErrTimeout }
	dm.open = func(string) (Input, error) { return nil, errors.New("unreachable") }

	dm.scan()

	assert.Empty(t, dm.Inputs())
	assert.Len(t, dm.Events(), 0)
}

func TestKeyboardControllerWithoutPort(t *testing.T) {
	kb, err := NewKeyboardController("virtual", nil, nil)
	require.NoError(t, err)

	kb.emit(NoteEvent{Note: 60, On: true})
	ev := <-kb.NoteEvents()
	assert.Equal(t, uint8(60), ev.Note)

	require.NoError(t, kb.Close())
	require.NoError(t, kb.Close())
	kb.emit(NoteEvent{Note: 61, On: true})

	_, open := <-kb.NoteEvents()
	assert.False(t, open)
}
