package widgets

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go-rehearse/theme"
	"go-rehearse/timeline"
)

// Cell is one square of the falling-note roll
type Cell struct {
	Note  bool
	Onset bool
	Hand  timeline.Hand
}

// RollGrid lays notes out with time running upwards. Row rows-1 starts at
// cursor; each row covers window/rows. Columns are pitches lo..hi.
func RollGrid(notes []timeline.NoteInterval, lo, hi uint8, cursor, window time.Duration, rows int) [][]Cell {
	if rows <= 0 || hi < lo || window <= 0 {
		return nil
	}
	cols := int(hi-lo) + 1
	slice := window / time.Duration(rows)

	grid := make([][]Cell, rows)
	for r := range grid {
		grid[r] = make([]Cell, cols)
	}

	for _, iv := range notes {
		if iv.Pitch < lo || iv.Pitch > hi {
			continue
		}
		col := int(iv.Pitch - lo)
		for r := 0; r < rows; r++ {
			from := cursor + time.Duration(rows-1-r)*slice
			to := from + slice
			if iv.On >= to || iv.Off <= from {
				continue
			}
			grid[r][col] = Cell{
				Note:  true,
				Onset: iv.On >= from,
				Hand:  iv.Hand,
			}
		}
	}
	return grid
}

// RenderRoll draws a grid from RollGrid with the cursor line below it
func RenderRoll(grid [][]Cell, lo uint8, th *theme.Theme) string {
	lane := lipgloss.NewStyle().Foreground(th.Muted())
	hands := map[timeline.Hand]lipgloss.Style{
		timeline.HandNone:  lipgloss.NewStyle().Foreground(th.HandColor(timeline.HandNone)),
		timeline.HandLeft:  lipgloss.NewStyle().Foreground(th.HandColor(timeline.HandLeft)),
		timeline.HandRight: lipgloss.NewStyle().Foreground(th.HandColor(timeline.HandRight)),
	}

	var out strings.Builder
	width := 0
	for _, row := range grid {
		width = len(row)
		for col, c := range row {
			switch {
			case c.Onset:
				out.WriteString(hands[c.Hand].Render(string(th.Symbols.Onset)))
			case c.Note:
				out.WriteString(hands[c.Hand].Render(string(th.Symbols.Note)))
			case IsBlack(lo + uint8(col)):
				out.WriteString(lane.Render(string(th.Symbols.Lane)))
			default:
				out.WriteRune(th.Symbols.Empty)
			}
		}
		out.WriteString("\n")
	}
	hit := lipgloss.NewStyle().Foreground(th.Accent())
	out.WriteString(hit.Render(strings.Repeat(string(th.Symbols.HitLine), width)))
	return out.String()
}
