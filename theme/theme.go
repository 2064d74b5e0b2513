package theme

import (
	"github.com/charmbracelet/lipgloss"

	"go-rehearse/timeline"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Falling notes
	Note    rune // █ note body
	Onset   rune // ▄ first row of a note
	Empty   rune // space
	Lane    rune // · black-key lane
	HitLine rune // ─ cursor line

	// Keyboard
	WhiteKey rune // ▔
	BlackKey rune // ▀
	LitKey   rune // ● highlighted
	WaitKey  rune // ◆ awaited by the gate
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Note:    '█',
			Onset:   '▄',
			Empty:   ' ',
			Lane:    '·',
			HitLine: '─',

			WhiteKey: '▔',
			BlackKey: '▀',
			LitKey:   '●',
			WaitKey:  '◆',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG        = 0.0
	RoleMuted     = 0.2
	RoleLeft      = 0.3
	RoleFG        = 0.4
	RoleAccent    = 0.5
	RoleHighlight = 0.6
	RoleWarning   = 0.75
	RoleRight     = 0.85
	RoleSuccess   = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return t.Color(RoleBG)
}

func (t *Theme) FG() lipgloss.Color {
	return t.Color(RoleFG)
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Color(RoleAccent)
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Color(RoleMuted)
}

func (t *Theme) Highlight() lipgloss.Color {
	return t.Color(RoleHighlight)
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Color(RoleWarning)
}

func (t *Theme) Success() lipgloss.Color {
	return t.Color(RoleSuccess)
}

// HandColor colors notes by hand label. Unlabeled notes are muted.
func (t *Theme) HandColor(h timeline.Hand) lipgloss.Color {
	switch h {
	case timeline.HandLeft:
		return t.Color(RoleLeft)
	case timeline.HandRight:
		return t.Color(RoleRight)
	}
	return t.Color(RoleFG)
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}
