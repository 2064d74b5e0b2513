package midi

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeviceEvent is emitted when a keyboard connects or disconnects
type DeviceEvent struct {
	Type  DeviceEventType
	Input Input
	ID    string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager watches the input ports for a keyboard matching a name
// and opens it when it appears (hot-plug).
type DeviceManager struct {
	want     string
	inputs   map[string]Input
	mu       sync.RWMutex
	events   chan DeviceEvent
	pollRate time.Duration
	log      *zap.Logger

	list func() ([]string, error)
	open func(name string) (Input, error)
}

// NewDeviceManager watches for an input whose name contains want. An
// empty want takes the first input port.
func NewDeviceManager(want string, logger *zap.Logger) *DeviceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	dm := &DeviceManager{
		want:     want,
		inputs:   make(map[string]Input),
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
		log:      logger,
		list:     InPortNames,
	}
	dm.open = func(name string) (Input, error) {
		return openExact(name, dm.log)
	}
	return dm
}

// Events returns a channel of connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Inputs returns a snapshot of connected inputs
func (dm *DeviceManager) Inputs() map[string]Input {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Input, len(dm.inputs))
	for k, v := range dm.inputs {
		out[k] = v
	}
	return out
}

// Run polls until ctx is done (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	names, err := dm.list()
	if err != nil {
		// hung driver, try again next tick
		dm.log.Debug("midi: port scan failed", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	if i := matchPort(names, dm.want); i >= 0 {
		id := names[i]
		seen[id] = true

		dm.mu.RLock()
		_, exists := dm.inputs[id]
		dm.mu.RUnlock()

		if !exists {
			in, err := dm.open(id)
			if err != nil {
				dm.log.Warn("midi: open input", zap.String("device", id), zap.Error(err))
			} else {
				dm.mu.Lock()
				dm.inputs[id] = in
				dm.mu.Unlock()
				dm.log.Info("midi: input connected", zap.String("device", id))
				dm.emit(DeviceEvent{Type: DeviceConnected, Input: in, ID: id})
			}
		}
	}

	dm.mu.Lock()
	var gone []string
	for id := range dm.inputs {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		dm.inputs[id].Close()
		delete(dm.inputs, id)
	}
	dm.mu.Unlock()

	for _, id := range gone {
		dm.log.Info("midi: input disconnected", zap.String("device", id))
		dm.emit(DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
		dm.log.Warn("midi: device event dropped", zap.String("device", ev.ID))
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, in := range dm.inputs {
		in.Close()
	}
	dm.inputs = make(map[string]Input)
}

func openExact(name string, logger *zap.Logger) (Input, error) {
	ins, _, err := Ports(PortTimeout)
	if err != nil {
		return nil, err
	}
	for _, p := range ins {
		if p.String() == name {
			return NewKeyboardController(name, p, logger)
		}
	}
	return nil, ErrPortNotFound
}
