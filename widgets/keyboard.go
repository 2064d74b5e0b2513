package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-rehearse/theme"
	"go-rehearse/timeline"
)

// KeyState is how one key is drawn
type KeyState int

const (
	KeyIdle KeyState = iota
	KeyLit
	KeyAwaited
)

// IsBlack reports whether pitch is a black key
func IsBlack(pitch uint8) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns scientific pitch notation, 60 = C4
func NoteName(pitch uint8) string {
	return fmt.Sprintf("%s%d", noteNames[pitch%12], int(pitch)/12-1)
}

// KeyStates returns one state per pitch in [lo, hi]. Awaited wins over lit.
func KeyStates(lo, hi uint8, lit, awaited timeline.PitchSet) []KeyState {
	if hi < lo {
		return nil
	}
	out := make([]KeyState, 0, int(hi-lo)+1)
	for p := int(lo); p <= int(hi); p++ {
		switch {
		case awaited.Has(uint8(p)):
			out = append(out, KeyAwaited)
		case lit.Has(uint8(p)):
			out = append(out, KeyLit)
		default:
			out = append(out, KeyIdle)
		}
	}
	return out
}

// RenderKeyboard draws one cell per pitch in [lo, hi] with octave labels
// underneath
func RenderKeyboard(lo, hi uint8, lit, awaited timeline.PitchSet, th *theme.Theme) string {
	litStyle := lipgloss.NewStyle().Foreground(th.Highlight())
	waitStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(th.FG())
	blackStyle := lipgloss.NewStyle().Foreground(th.Muted())

	var keys strings.Builder
	for i, st := range KeyStates(lo, hi, lit, awaited) {
		p := lo + uint8(i)
		switch {
		case st == KeyAwaited:
			keys.WriteString(waitStyle.Render(string(th.Symbols.WaitKey)))
		case st == KeyLit:
			keys.WriteString(litStyle.Render(string(th.Symbols.LitKey)))
		case IsBlack(p):
			keys.WriteString(blackStyle.Render(string(th.Symbols.BlackKey)))
		default:
			keys.WriteString(keyStyle.Render(string(th.Symbols.WhiteKey)))
		}
	}

	labels := lipgloss.NewStyle().Foreground(th.Muted()).Render(OctaveLabels(lo, hi))
	return keys.String() + "\n" + labels
}

// OctaveLabels puts the name of every C under its column
func OctaveLabels(lo, hi uint8) string {
	if hi < lo {
		return ""
	}
	line := []rune(strings.Repeat(" ", int(hi-lo)+1))
	for p := int(lo); p <= int(hi); p++ {
		if p%12 != 0 {
			continue
		}
		for j, r := range NoteName(uint8(p)) {
			if col := p - int(lo) + j; col < len(line) {
				line[col] = r
			}
		}
	}
	return string(line)
}
