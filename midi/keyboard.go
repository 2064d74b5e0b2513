package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// KeyboardController reads note presses and releases from a MIDI input
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	log      *zap.Logger

	noteChan  chan NoteEvent
	mu        sync.Mutex // guards closed against the listener callback
	closed    bool
	closeOnce sync.Once
}

// NewKeyboardController opens inPort and starts listening. On failure the
// port is closed again.
func NewKeyboardController(id string, inPort drivers.In, logger *zap.Logger) (*KeyboardController, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kb := &KeyboardController{
		id:       id,
		inPort:   inPort,
		log:      logger.With(zap.String("device", id)),
		noteChan: make(chan NoteEvent, 64),
	}

	if inPort == nil {
		return kb, nil
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if ev, ok := Decode(msg); ok {
			kb.emit(ev)
		}
	}, gomidi.HandleError(func(listenErr error) {
		kb.log.Warn("midi: listener error", zap.Error(listenErr))
	}))
	if err != nil {
		inPort.Close()
		return nil, fmt.Errorf("open input %s: %w", id, err)
	}
	kb.stopFunc = stop
	return kb, nil
}

func (kb *KeyboardController) emit(ev NoteEvent) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.noteChan <- ev:
	default:
		kb.log.Debug("midi: dropped note event", zap.Uint8("note", ev.Note))
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

func (kb *KeyboardController) Close() error {
	var err error
	kb.closeOnce.Do(func() {
		if kb.stopFunc != nil {
			kb.stopFunc()
		}
		if kb.inPort != nil {
			err = kb.inPort.Close()
		}
		kb.mu.Lock()
		kb.closed = true
		close(kb.noteChan)
		kb.mu.Unlock()
	})
	return err
}
