package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-rehearse/engine"
	"go-rehearse/midi"
	"go-rehearse/theme"
	"go-rehearse/timeline"
	"go-rehearse/widgets"
)

const (
	// RowPixels converts a terminal row of mouse drag into scrub pixels
	RowPixels = 16.0

	DefaultWindow = 4 * time.Second
	minWindow     = time.Second
	maxWindow     = 16 * time.Second

	// blank line + header + blank line
	rollTop = 3
)

var helpKeys = []widgets.KeyBinding{
	{Key: "space", Desc: "play"},
	{Key: "←/→", Desc: "step"},
	{Key: "m", Desc: "mode"},
	{Key: "0-3", Desc: "listen/practice L/R/both"},
	{Key: "e", Desc: "edit"},
	{Key: "b", Desc: "brush"},
	{Key: "a", Desc: "assign"},
	{Key: "s", Desc: "save"},
	{Key: "+/-", Desc: "zoom"},
	{Key: "q", Desc: "quit"},
}

type Model struct {
	Session   *engine.Session
	DeviceMgr *midi.DeviceManager // nil when no keyboard is wanted
	Surface   *Surface
	Theme     *theme.Theme
	Title     string

	lo, hi   uint8
	window   time.Duration
	width    int
	height   int
	dragging bool
	dragY    int
	quitting bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(session *engine.Session, deviceMgr *midi.DeviceManager, surface *Surface, th *theme.Theme, title string) Model {
	lo, hi := session.Timeline().PitchRange()
	return Model{
		Session:   session,
		DeviceMgr: deviceMgr,
		Surface:   surface,
		Theme:     th,
		Title:     title,
		lo:        lo,
		hi:        hi,
		window:    DefaultWindow,
	}
}

func ListenForUpdates(session *engine.Session) tea.Cmd {
	return func() tea.Msg {
		<-session.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Session),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.MouseMsg:
		m.handleMouse(tea.MouseEvent(msg))

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case UpdateMsg:
		return m, ListenForUpdates(m.Session)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.Session.AttachInput(event.Input)
		case midi.DeviceDisconnected:
			m.Session.DetachInput(event.ID)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	st := m.Session.State()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Session.Stop()
		return m, tea.Quit

	case " ", "p":
		m.Session.TogglePlay()
	case "right":
		m.Session.StepForward()
	case "left":
		m.Session.StepBack()
	case "home":
		m.Session.Seek(0)

	case "m":
		m.Session.CycleMode()
	case "0":
		m.Session.SetMode(engine.Listening{})
	case "1":
		m.Session.SetMode(engine.Practice{Hand: timeline.HandLeft})
	case "2":
		m.Session.SetMode(engine.Practice{Hand: timeline.HandRight})
	case "3":
		m.Session.SetMode(engine.Practice{})
	case "e":
		m.Session.SetMode(engine.Editing{})

	case "b":
		m.Session.SetBrush(nextBrush(st.Brush))
	case "a":
		if _, ok := st.Mode.(engine.Editing); ok && st.Brush != timeline.HandNone {
			m.Session.AssignSounding(st.Brush)
		}
	case "s":
		m.Session.Save()

	case "+", "=":
		m.window = max(m.window/2, minWindow)
	case "-", "_":
		m.window = min(m.window*2, maxWindow)
	}
	return m, nil
}

func nextBrush(h timeline.Hand) timeline.Hand {
	switch h {
	case timeline.HandNone:
		return timeline.HandLeft
	case timeline.HandLeft:
		return timeline.HandRight
	}
	return timeline.HandNone
}

func (m *Model) handleMouse(ev tea.MouseEvent) {
	switch {
	case ev.Button == tea.MouseButtonWheelUp:
		m.Session.Seek(m.Session.State().Cursor + m.window/4)
	case ev.Button == tea.MouseButtonWheelDown:
		m.Session.Seek(m.Session.State().Cursor - m.window/4)

	case ev.Action == tea.MouseActionPress && ev.Button == tea.MouseButtonLeft:
		if ev.Y >= rollTop && ev.Y < rollTop+m.rows() {
			m.dragging = true
			m.dragY = ev.Y
			m.Session.BeginDrag()
		}
	case ev.Action == tea.MouseActionMotion && m.dragging:
		m.Session.DragBy(float64(ev.Y-m.dragY) * RowPixels)
	case ev.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		m.Session.EndDrag()
	}
}

// rows available for the roll: header, hit line, keyboard, labels, help
// and notice take the rest
func (m Model) rows() int {
	if m.height == 0 {
		return 16
	}
	return max(m.height-rollTop-6, 4)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Session.State()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	waitStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	noticeStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Muted()).
		Padding(0, 1)

	header := headerStyle.Render(m.header(st))

	grid := widgets.RollGrid(
		m.Session.Timeline().Window(st.Cursor, st.Cursor+m.window),
		m.lo, m.hi, st.Cursor, m.window, m.rows())
	roll := widgets.RenderRoll(grid, m.lo, m.Theme)
	keyboard := widgets.RenderKeyboard(m.lo, m.hi, m.Surface.Keys(), st.Awaited, m.Theme)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(roll)
	out.WriteString("\n")
	out.WriteString(keyboard)
	out.WriteString("\n")

	switch {
	case !st.Ready:
		out.WriteString(waitStyle.Render("get ready..."))
	case st.Phase == engine.AwaitingMatch:
		out.WriteString(waitStyle.Render("play " + pitchNames(st.Awaited)))
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(helpKeys)))

	if st.Notice != "" {
		out.WriteString("\n")
		out.WriteString(noticeStyle.Render(st.Notice))
	}

	return out.String()
}

func (m Model) header(st engine.State) string {
	input := "no keyboard"
	if st.Input != "" {
		input = "in:" + st.Input
	}
	brush := ""
	if _, ok := st.Mode.(engine.Editing); ok {
		name := st.Brush.String()
		if name == "" {
			name = "NONE"
		}
		brush = "  brush:" + name
	}
	return fmt.Sprintf("go-rehearse  %s  %s  %s  %s / %s  %s%s",
		m.Title, strings.ToUpper(st.Mode.String()), strings.ToUpper(st.Run.String()),
		formatClock(st.Cursor), formatClock(st.Duration), input, brush)
}

// formatClock renders d as m:ss.t
func formatClock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	return fmt.Sprintf("%d:%02d.%d",
		int(d/time.Minute), int(d%time.Minute/time.Second), int(d%time.Second/(100*time.Millisecond)))
}

func pitchNames(set timeline.PitchSet) string {
	var names []string
	for _, p := range set.Pitches() {
		names = append(names, widgets.NoteName(p))
	}
	return strings.Join(names, " ")
}
