package timeline

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is one raw message at an absolute tick
type Event struct {
	Tick int64
	Msg  []byte
}

// Track is a tick-ordered list of events
type Track []Event

// Sequence is a decoded multi-track sequence plus its tempo map
type Sequence struct {
	Tracks []Track

	// TickToMicros converts an absolute tick to microseconds
	TickToMicros func(tick int64) int64
}

// Merge returns every event of every track in tick order. Events on the
// same tick keep track order, then in-track order.
func (s Sequence) Merge() []Event {
	n := 0
	for _, tr := range s.Tracks {
		n += len(tr)
	}

	type ordered struct {
		Event
		track, idx int
	}
	all := make([]ordered, 0, n)
	for ti, tr := range s.Tracks {
		for i, ev := range tr {
			all = append(all, ordered{Event: ev, track: ti, idx: i})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Tick != all[j].Tick {
			return all[i].Tick < all[j].Tick
		}
		if all[i].track != all[j].track {
			return all[i].track < all[j].track
		}
		return all[i].idx < all[j].idx
	})

	out := make([]Event, len(all))
	for i := range all {
		out[i] = all[i].Event
	}
	return out
}

// At converts a tick to a duration from the start of the sequence
func (s Sequence) At(tick int64) time.Duration {
	if s.TickToMicros == nil {
		return 0
	}
	return time.Duration(s.TickToMicros(tick)) * time.Microsecond
}

// Length is the time of the last event in any track
func (s Sequence) Length() time.Duration {
	var last int64
	for _, tr := range s.Tracks {
		if len(tr) > 0 && tr[len(tr)-1].Tick > last {
			last = tr[len(tr)-1].Tick
		}
	}
	return s.At(last)
}

// FromSMF flattens a parsed standard MIDI file into absolute-tick tracks
func FromSMF(s *smf.SMF) Sequence {
	seq := Sequence{
		Tracks:       make([]Track, 0, len(s.Tracks)),
		TickToMicros: s.TimeAt,
	}
	for _, events := range s.Tracks {
		var absTicks int64
		track := make(Track, 0, len(events))
		for _, ev := range events {
			absTicks += int64(ev.Delta)
			track = append(track, Event{Tick: absTicks, Msg: []byte(ev.Message)})
		}
		seq.Tracks = append(seq.Tracks, track)
	}
	return seq
}

// LoadFile reads and decodes a standard MIDI file
func LoadFile(path string) (seq Sequence, err error) {
	// smf can panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return Sequence{}, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return Sequence{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return FromSMF(s), nil
}
