package midi

import "errors"

var (
	// ErrPortNotFound means no port matched the requested name
	ErrPortNotFound = errors.New("midi port not found")

	// ErrTimeout means the driver did not answer a port query in time
	ErrTimeout = errors.New("midi driver timed out")
)

// Input is a physical keyboard delivering note events
type Input interface {
	ID() string

	// NoteEvents is closed by Close
	NoteEvents() <-chan NoteEvent

	Close() error
}
