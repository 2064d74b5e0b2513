package timeline

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Build pairs note onsets with offsets and returns the timeline.
//
// Each pitch keeps a FIFO of pending onsets across all tracks. An offset
// (NoteOff, or NoteOn with velocity 0) closes the earliest pending onset of
// its pitch. Onsets still pending when the stream ends produce no interval.
func Build(seq Sequence) *Timeline {
	var pending [128][]time.Duration
	var intervals []NoteInterval

	for _, ev := range seq.Merge() {
		msg := gomidi.Message(ev.Msg)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			pending[key] = append(pending[key], millis(seq.At(ev.Tick)))
		case msg.GetNoteEnd(&ch, &key):
			queue := pending[key]
			if len(queue) == 0 {
				continue
			}
			on := queue[0]
			pending[key] = queue[1:]

			off := millis(seq.At(ev.Tick))
			if off <= on {
				off = on + time.Millisecond
			}
			intervals = append(intervals, NoteInterval{Pitch: key, On: on, Off: off})
		}
	}

	return New(intervals, seq.Length())
}

// millis truncates to whole milliseconds
func millis(d time.Duration) time.Duration {
	return d.Truncate(time.Millisecond)
}
