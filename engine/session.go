package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-rehearse/assign"
	"go-rehearse/debug"
	"go-rehearse/midi"
	"go-rehearse/timeline"
)

// DefaultTickRate is the tick loop frequency in Hz
const DefaultTickRate = 60

// Saver persists hand labels of a timeline
type Saver interface {
	Save(hash string, tl *timeline.Timeline) (int, error)
}

// Options configure a Session. Zero values take defaults.
type Options struct {
	TickRate int
	WarmUp   time.Duration
	Step     time.Duration
	Autosave time.Duration
	Mode     Mode
	Surface  Surface
	Saver    Saver
	Logger   *zap.Logger
	Now      func() time.Time
}

func (o *Options) defaults() {
	if o.TickRate <= 0 {
		o.TickRate = DefaultTickRate
	}
	if o.WarmUp <= 0 {
		o.WarmUp = DefaultWarmUp
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.Autosave <= 0 {
		o.Autosave = 2 * time.Second
	}
	if o.Mode == nil {
		o.Mode = Listening{}
	}
	if o.Surface == nil {
		o.Surface = nopSurface{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// State is a snapshot of the session for display
type State struct {
	ID       string
	Mode     Mode
	Run      RunMode
	Cursor   time.Duration
	Duration time.Duration
	Ready    bool
	Phase    Phase
	Awaited  timeline.PitchSet
	Brush    timeline.Hand
	Input    string
	Notice   string
}

// Session wires the clock, gate, aggregator and seeker to a transport and
// runs the fixed-rate tick loop. Clock and gate state are only touched on
// the loop goroutine; UI calls are posted to it as commands.
type Session struct {
	id      uuid.UUID
	tl      *timeline.Timeline
	hash    string
	tr      Transport
	surface Surface
	saver   Saver
	opts    Options
	log     *zap.Logger

	clock  *Clock
	gate   *Gate
	input  *Aggregator
	seeker *Seeker

	mu     sync.RWMutex // guards mode, brush, device, state
	mode   Mode
	brush  timeline.Hand
	device midi.Input
	state  State

	autosave func(func())
	dirty    atomic.Bool
	saveMu   sync.Mutex // serializes autosave and explicit saves
	stopped  atomic.Bool

	cmds     chan func()
	stopChan chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	last     time.Time

	// Notify UI of updates
	UpdateChan chan struct{}
}

// NewSession creates a session over a built timeline. hash identifies the
// sequence for hand assignment storage.
func NewSession(tl *timeline.Timeline, hash string, tr Transport, opts Options) *Session {
	opts.defaults()
	id := uuid.New()

	duration := tl.Duration()
	if l := tr.Length(); l > duration {
		duration = l
	}

	s := &Session{
		id:         id,
		tl:         tl,
		hash:       hash,
		tr:         tr,
		surface:    opts.Surface,
		saver:      opts.Saver,
		opts:       opts,
		log:        opts.Logger.With(zap.String("session", id.String())),
		clock:      NewClock(duration, opts.WarmUp, opts.Now()),
		input:      NewAggregator(),
		autosave:   debounce.New(opts.Autosave),
		cmds:       make(chan func(), 16),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	s.gate = NewGate(tl, s.input)
	s.seeker = NewSeeker(s.clock, tr)
	s.clock.OnResync(s.gate)
	s.clock.OnResync(s.input)
	s.applyMode(opts.Mode)
	s.publish()
	return s
}

// ID identifies this run in logs
func (s *Session) ID() string {
	return s.id.String()
}

// Start launches the tick loop
func (s *Session) Start() {
	if s.started.Swap(true) {
		return
	}
	s.last = s.opts.Now()
	s.log.Info("session started",
		zap.String("mode", s.state.Mode.String()),
		zap.Duration("duration", s.clock.Duration()),
		zap.Int("notes", s.tl.Len()))
	go s.loop()
}

// Stop halts the transport, closes the input device and ends the loop
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.autosave(func() {})
		close(s.stopChan)
		if s.started.Load() {
			<-s.done
		}
		s.tr.Stop()

		s.mu.Lock()
		dev := s.device
		s.device = nil
		s.mu.Unlock()
		if dev != nil {
			if err := dev.Close(); err != nil {
				s.log.Warn("close input", zap.String("device", dev.ID()), zap.Error(err))
			}
		}

		if s.dirty.Load() {
			s.save()
		}
		s.publish()
		s.log.Info("session stopped")
	})
}

func (s *Session) loop() {
	defer close(s.done)

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case fn := <-s.cmds:
			fn()
			s.publish()
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// do runs fn on the loop goroutine
func (s *Session) do(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.stopChan:
	}
}

func (s *Session) tick(now time.Time) {
	elapsed := now.Sub(s.last)
	s.last = now

	Apply(s.input.Drain(), s.surface)

	if !s.clock.Ready() {
		if !s.clock.WarmUp(now) {
			return
		}
		s.onReady()
	}

	if s.clock.Run() == Playing {
		s.advance(elapsed)
	}
	debug.LogEvery(600, "tick", "cursor=%v run=%v phase=%v", s.clock.Cursor(), s.clock.Run(), s.gate.Phase())
	s.publish()
}

func (s *Session) advance(elapsed time.Duration) {
	if s.tr.IsPlaying() {
		s.clock.SyncTo(s.tr.Position())
		return
	}
	if _, ok := s.mode.(Listening); ok {
		// transport ran out
		s.clock.SetRun(Stopped)
		return
	}

	cur := s.clock.Cursor()
	next := min(cur+elapsed, s.clock.Duration())
	if _, ok := s.mode.(Practice); ok {
		next = s.gate.Evaluate(cur, next, s.surface)
	}
	s.clock.Advance(next - cur)
	if s.clock.AtEnd() {
		s.clock.SetRun(Stopped)
	}
}

func (s *Session) onReady() {
	s.log.Info("controls enabled", zap.Duration("duration", s.clock.Duration()))
	switch s.mode.(type) {
	case Listening:
		if err := s.tr.Play(); err != nil {
			s.log.Error("start transport", zap.Error(err))
			s.setNotice("playback unavailable: " + err.Error())
			return
		}
		s.clock.SetRun(Playing)
	case Practice:
		s.clock.SetRun(Playing)
	}
}

func (s *Session) applyMode(m Mode) {
	s.seeker.Cancel()
	s.tr.Stop()

	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()

	s.seeker.SetMode(m)
	hand := timeline.HandNone
	if p, ok := m.(Practice); ok {
		hand = p.Hand
	}
	s.gate.SetHand(hand)

	s.tr.SetPosition(s.clock.Cursor())
	s.clock.ResyncTo(s.clock.Cursor())
	s.clock.SetRun(Stopped)
	if _, ok := m.(Practice); ok && s.clock.Ready() {
		s.clock.SetRun(Playing)
	}
	s.log.Info("mode", zap.String("mode", m.String()))
}

func (s *Session) togglePlay() {
	if !s.clock.Ready() {
		return
	}
	if s.clock.AtEnd() && s.clock.Run() != Playing {
		s.seek(0)
	}

	switch s.mode.(type) {
	case Listening:
		if s.tr.IsPlaying() {
			s.tr.Stop()
			s.clock.SetRun(Stopped)
			return
		}
		s.tr.SetPosition(s.clock.Cursor())
		if err := s.tr.Play(); err != nil {
			s.setNotice("playback unavailable: " + err.Error())
			return
		}
		s.clock.SetRun(Playing)
	default:
		if s.clock.Run() == Playing {
			s.clock.SetRun(Stopped)
		} else {
			s.clock.SetRun(Playing)
		}
	}
}

func (s *Session) seek(at time.Duration) {
	if !s.clock.Ready() {
		return
	}
	if err := s.seeker.Seek(at); err != nil {
		s.log.Warn("resume after seek", zap.Error(err))
	}
}

func (s *Session) assign(pitch uint8, hand timeline.Hand) bool {
	cursor := s.clock.Cursor()
	for _, i := range s.tl.SoundingAt(cursor) {
		if s.tl.Interval(i).Pitch == pitch {
			s.tl.SetHand(i, hand)
			s.edited()
			return true
		}
	}
	return false
}

func (s *Session) assignSounding(hand timeline.Hand) int {
	idx := s.tl.SoundingAt(s.clock.Cursor())
	for _, i := range idx {
		s.tl.SetHand(i, hand)
	}
	if len(idx) > 0 {
		s.edited()
	}
	return len(idx)
}

func (s *Session) edited() {
	s.dirty.Store(true)
	s.autosave(func() {
		if s.stopped.Load() {
			return
		}
		s.save()
	})
}

func (s *Session) save() (int, error) {
	if s.saver == nil {
		return 0, nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	n, err := s.saver.Save(s.hash, s.tl)
	switch {
	case errors.Is(err, assign.ErrNothingToSave):
		s.setNotice(err.Error())
	case err != nil:
		s.log.Error("save assignments", zap.String("hash", s.hash), zap.Error(err))
		s.setNotice("save failed: " + err.Error())
	default:
		s.dirty.Store(false)
		s.setNotice("saved hand assignments")
		s.log.Info("saved assignments", zap.String("hash", s.hash), zap.Int("count", n))
	}
	return n, err
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	s.state.Notice = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) publish() {
	s.mu.Lock()
	s.state = State{
		ID:       s.id.String(),
		Mode:     s.mode,
		Run:      s.clock.Run(),
		Cursor:   s.clock.Cursor(),
		Duration: s.clock.Duration(),
		Ready:    s.clock.Ready(),
		Phase:    s.gate.Phase(),
		Awaited:  s.gate.Awaited(),
		Brush:    s.brush,
		Input:    deviceID(s.device),
		Notice:   s.state.Notice,
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}

func deviceID(d midi.Input) string {
	if d == nil {
		return ""
	}
	return d.ID()
}

// State returns the latest snapshot
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Timeline returns the session's timeline
func (s *Session) Timeline() *timeline.Timeline {
	return s.tl
}

// Controls

// TogglePlay starts or pauses playback
func (s *Session) TogglePlay() { s.do(s.togglePlay) }

// Seek jumps to an absolute position
func (s *Session) Seek(at time.Duration) { s.do(func() { s.seek(at) }) }

// StepForward moves one step ahead
func (s *Session) StepForward() { s.do(func() { s.seek(s.clock.Cursor() + s.opts.Step) }) }

// StepBack moves one step back
func (s *Session) StepBack() { s.do(func() { s.seek(s.clock.Cursor() - s.opts.Step) }) }

// BeginDrag starts a scrub drag
func (s *Session) BeginDrag() {
	s.do(func() {
		if s.clock.Ready() {
			s.seeker.BeginDrag()
		}
	})
}

// DragBy scrubs relative to the drag start, in pixels
func (s *Session) DragBy(dy float64) { s.do(func() { s.seeker.DragBy(dy) }) }

// EndDrag finishes a scrub drag
func (s *Session) EndDrag() {
	s.do(func() {
		if err := s.seeker.EndDrag(); err != nil {
			s.log.Warn("resume after drag", zap.Error(err))
		}
	})
}

// SetMode switches mode, resetting the gate and input state
func (s *Session) SetMode(m Mode) { s.do(func() { s.applyMode(m) }) }

// CycleMode switches to the next mode
func (s *Session) CycleMode() { s.do(func() { s.applyMode(NextMode(s.mode)) }) }

// SetBrush picks the hand that editing-mode key presses assign
func (s *Session) SetBrush(h timeline.Hand) {
	s.mu.Lock()
	s.brush = h
	s.mu.Unlock()
	s.do(func() {})
}

// AssignHand labels the interval of pitch sounding at the cursor
func (s *Session) AssignHand(pitch uint8, hand timeline.Hand) {
	s.do(func() {
		if !s.assign(pitch, hand) {
			s.setNotice("no sounding note to assign")
		}
	})
}

// AssignSounding labels every interval sounding at the cursor
func (s *Session) AssignSounding(hand timeline.Hand) {
	s.do(func() { s.assignSounding(hand) })
}

// Save writes hand assignments now
func (s *Session) Save() (int, error) {
	return s.save()
}

// Input

// AttachInput starts consuming a keyboard, replacing any previous one
func (s *Session) AttachInput(in midi.Input) {
	s.mu.Lock()
	old := s.device
	s.device = in
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.log.Info("input attached", zap.String("device", in.ID()))

	go func() {
		for ev := range in.NoteEvents() {
			s.HandleInput(ev)
		}
	}()
	s.notify()
}

// DetachInput forgets the device with id and clears held keys. The gate
// keeps waiting on its chord.
func (s *Session) DetachInput(id string) {
	s.mu.Lock()
	dev := s.device
	if dev == nil || dev.ID() != id {
		s.mu.Unlock()
		return
	}
	s.device = nil
	s.mu.Unlock()

	dev.Close()
	s.log.Info("input detached", zap.String("device", id))
	s.do(func() { s.input.Reset(s.clock.Cursor()) })
}

// HandleInput routes a physical key event. Only Practice feeds the gate;
// Editing assigns the brush hand; Listening ignores the keyboard.
func (s *Session) HandleInput(ev midi.NoteEvent) {
	s.mu.RLock()
	mode, brush := s.mode, s.brush
	s.mu.RUnlock()

	switch mode.(type) {
	case Practice:
		if ev.On {
			s.input.Press(ev.Note)
		} else {
			s.input.Release(ev.Note)
		}
	case Editing:
		if ev.On && brush != timeline.HandNone {
			s.AssignHand(ev.Note, brush)
		}
	}
}

// NoteOn receives transport note callbacks; ignored outside Listening
func (s *Session) NoteOn(pitch uint8) {
	if s.listening() {
		s.input.Press(pitch)
	}
}

// NoteOff receives transport note callbacks; ignored outside Listening
func (s *Session) NoteOff(pitch uint8) {
	if s.listening() {
		s.input.Release(pitch)
	}
}

func (s *Session) listening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mode.(Listening)
	return ok
}
