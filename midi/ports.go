package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// PortTimeout bounds a port query. Some drivers hang while the system
// MIDI service is wedged.
const PortTimeout = 3 * time.Second

// Ports lists input and output ports, giving up after timeout
func Ports(timeout time.Duration) (ins []drivers.In, outs []drivers.Out, err error) {
	type portsResult struct {
		ins  []drivers.In
		outs []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, ErrTimeout
	}
}

// InPortNames lists input port names
func InPortNames() ([]string, error) {
	ins, _, err := Ports(PortTimeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, p := range ins {
		names[i] = p.String()
	}
	return names, nil
}

// matchPort finds the first name containing want, ignoring case. An empty
// want matches the first name.
func matchPort(names []string, want string) int {
	want = strings.ToLower(strings.TrimSpace(want))
	for i, name := range names {
		if want == "" || strings.Contains(strings.ToLower(name), want) {
			return i
		}
	}
	return -1
}

// OpenKeyboard opens the first input port matching name
func OpenKeyboard(name string, logger *zap.Logger) (*KeyboardController, error) {
	ins, _, err := Ports(PortTimeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, p := range ins {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("input %q: %w", name, ErrPortNotFound)
	}
	return NewKeyboardController(names[i], ins[i], logger)
}

// Output is an open MIDI output port
type Output struct {
	port drivers.Out
	send func(gomidi.Message) error
}

// OpenOutput opens the first output port matching name
func OpenOutput(name string) (*Output, error) {
	_, outs, err := Ports(PortTimeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("output %q: %w", name, ErrPortNotFound)
	}

	send, err := gomidi.SendTo(outs[i])
	if err != nil {
		outs[i].Close()
		return nil, fmt.Errorf("open output %s: %w", names[i], err)
	}
	return &Output{port: outs[i], send: send}, nil
}

// Name returns the port name
func (o *Output) Name() string {
	return o.port.String()
}

// Send writes one message
func (o *Output) Send(msg gomidi.Message) error {
	return o.send(msg)
}

// Close closes the port
func (o *Output) Close() error {
	return o.port.Close()
}
