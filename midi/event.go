package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoteEvent is a key going down (On) or up on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	On       bool
}

// Decode turns a raw message into a NoteEvent. NoteOn with velocity 0
// counts as a release. Other messages report false.
func Decode(msg gomidi.Message) (NoteEvent, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteEvent{Note: key, Velocity: vel, Channel: ch, On: true}, true
	case msg.GetNoteEnd(&ch, &key):
		return NoteEvent{Note: key, Channel: ch}, true
	}
	return NoteEvent{}, false
}
