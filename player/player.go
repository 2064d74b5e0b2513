package player

import (
	"sort"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"go-rehearse/debug"
	"go-rehearse/timeline"
)

// NoteObserver is told about every note the player starts or stops
type NoteObserver interface {
	NoteOn(pitch uint8)
	NoteOff(pitch uint8)
}

// Sender writes one message to a MIDI output
type Sender func(gomidi.Message) error

type scheduled struct {
	at  time.Duration
	msg gomidi.Message
}

// Player plays a sequence's channel messages to a MIDI output in real
// time and reports its position. A nil sender plays silently, which still
// drives the clock and note callbacks.
type Player struct {
	events []scheduled
	length time.Duration
	send   Sender
	log    *zap.Logger

	mu       sync.Mutex
	observer NoteObserver
	playing  bool
	base     time.Duration // position at t0
	t0       time.Time
	stopChan chan struct{}
	done     chan struct{}

	soundMu  sync.Mutex
	sounding map[[2]uint8]bool // channel, key
}

// New prepares a player for seq
func New(seq timeline.Sequence, send Sender, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Player{
		length:   seq.Length(),
		send:     send,
		log:      logger.Named("player"),
		sounding: make(map[[2]uint8]bool),
	}
	for _, ev := range seq.Merge() {
		if len(ev.Msg) == 0 || ev.Msg[0] < 0x80 || ev.Msg[0] >= 0xF0 {
			continue // meta and sysex stay in the file
		}
		p.events = append(p.events, scheduled{at: seq.At(ev.Tick), msg: gomidi.Message(ev.Msg)})
	}
	return p
}

// SetObserver registers the note callback receiver
func (p *Player) SetObserver(o NoteObserver) {
	p.mu.Lock()
	p.observer = o
	p.mu.Unlock()
}

// Length returns the sequence length
func (p *Player) Length() time.Duration {
	return p.length
}

// IsPlaying reports whether playback is running
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the playback position
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *Player) position() time.Duration {
	if !p.playing {
		return p.base
	}
	return min(p.base+time.Since(p.t0), p.length)
}

// SetPosition moves playback to at, restarting if playing
func (p *Player) SetPosition(at time.Duration) {
	at = max(0, min(at, p.length))
	if p.IsPlaying() {
		p.Stop()
		p.mu.Lock()
		p.base = at
		p.mu.Unlock()
		p.Play()
		return
	}
	p.mu.Lock()
	p.base = at
	p.mu.Unlock()
}

// Play starts playback from the current position
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	if p.base >= p.length {
		return nil
	}
	p.playing = true
	p.t0 = time.Now()
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	go p.dispatchLoop(p.base, p.t0, p.stopChan, p.done)
	return nil
}

// Stop pauses playback and silences sounding notes
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.base = p.position()
	p.playing = false
	stop, done := p.stopChan, p.done
	p.stopChan = nil
	p.mu.Unlock()

	close(stop)
	<-done
	p.silence()
}

// dispatchLoop sends events from base onward at their wall-clock times
func (p *Player) dispatchLoop(base time.Duration, t0 time.Time, stop, done chan struct{}) {
	defer close(done)

	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].at >= base })
	for ; i < len(p.events); i++ {
		ev := p.events[i]
		if wait := time.Until(t0.Add(ev.at - base)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		p.dispatch(ev.msg)
	}

	// hold the position until the sequence length is reached
	if wait := time.Until(t0.Add(p.length - base)); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	p.mu.Lock()
	owner := p.stopChan == stop
	if owner {
		p.playing = false
		p.base = p.length
		p.stopChan = nil
	}
	p.mu.Unlock()
	if owner {
		p.silence()
	}
	p.log.Debug("reached end", zap.Duration("length", p.length))
}

func (p *Player) dispatch(msg gomidi.Message) {
	if p.send != nil {
		if err := p.send(msg); err != nil {
			debug.LogEvery(100, "player", "send failed: %v", err)
		}
	}

	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		p.soundMu.Lock()
		p.sounding[[2]uint8{ch, key}] = true
		p.soundMu.Unlock()
		p.notify(key, true)
	case msg.GetNoteEnd(&ch, &key):
		p.soundMu.Lock()
		delete(p.sounding, [2]uint8{ch, key})
		p.soundMu.Unlock()
		p.notify(key, false)
	}
}

func (p *Player) notify(key uint8, on bool) {
	p.mu.Lock()
	o := p.observer
	p.mu.Unlock()
	if o == nil {
		return
	}
	if on {
		o.NoteOn(key)
	} else {
		o.NoteOff(key)
	}
}

// silence ends every note left sounding by a stop
func (p *Player) silence() {
	p.soundMu.Lock()
	keys := make([][2]uint8, 0, len(p.sounding))
	for k := range p.sounding {
		keys = append(keys, k)
	}
	clear(p.sounding)
	p.soundMu.Unlock()

	for _, k := range keys {
		if p.send != nil {
			p.send(gomidi.NoteOff(k[0], k[1]))
		}
		p.notify(k[1], false)
	}
}
