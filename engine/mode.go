package engine

import (
	"fmt"
	"strings"

	"go-rehearse/timeline"
)

// Mode is what the session is doing: Listening, Practice or Editing
type Mode interface {
	String() string
	mode()
}

// Listening plays the sequence through the transport
type Listening struct{}

// Practice gates the clock on the learner's input. Hand restricts awaited
// notes to one hand; HandNone awaits both.
type Practice struct {
	Hand timeline.Hand
}

// Editing lets the user assign hands with the transport stopped
type Editing struct{}

func (Listening) mode() {}
func (Practice) mode()  {}
func (Editing) mode()   {}

func (Listening) String() string { return "listening" }
func (Editing) String() string   { return "editing" }

func (p Practice) String() string {
	switch p.Hand {
	case timeline.HandLeft:
		return "practice (left)"
	case timeline.HandRight:
		return "practice (right)"
	}
	return "practice"
}

// ParseMode maps a CLI name to a Mode
func ParseMode(name string, hand timeline.Hand) (Mode, error) {
	switch strings.ToLower(name) {
	case "", "listen", "listening":
		return Listening{}, nil
	case "practice":
		return Practice{Hand: hand}, nil
	case "edit", "editing":
		return Editing{}, nil
	}
	return nil, fmt.Errorf("unknown mode %q", name)
}

// NextMode cycles Listening -> Practice -> Editing -> Listening
func NextMode(m Mode) Mode {
	switch m.(type) {
	case Listening:
		return Practice{}
	case Practice:
		return Editing{}
	}
	return Listening{}
}
