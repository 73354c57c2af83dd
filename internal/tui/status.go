package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"caraudio/internal/audio"
	"caraudio/internal/hal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D")).
			Width(16)
)

// maxEvents bounds the event log shown under the status.
const maxEvents = 8

// Action is a key bound to a simulator control.
type Action struct {
	Binding key.Binding
	Run     func() string // returns the line added to the event log
}

// NewAction binds keys to run.
func NewAction(keys, helpKey, desc string, run func() string) Action {
	return Action{
		Binding: key.NewBinding(key.WithKeys(strings.Split(keys, ",")...), key.WithHelp(helpKey, desc)),
		Run:     run,
	}
}

// SnapshotMsg carries a new arbiter snapshot into the program.
type SnapshotMsg audio.Snapshot

var quitKey = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))

// keyMap adapts the actions to help.KeyMap.
type keyMap []key.Binding

func (k keyMap) ShortHelp() []key.Binding  { return k }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k} }

// StatusModel shows the live arbiter state and lets the operator drive the
// simulated vehicle and apps.
type StatusModel struct {
	snap     audio.Snapshot
	seen     bool
	actions  []Action
	keys     keyMap
	help     help.Model
	viewport viewport.Model
	ready    bool
	events   []string
	now      func() time.Time
}

// NewStatusModel creates the model. initial is shown until the first
// SnapshotMsg arrives.
func NewStatusModel(initial audio.Snapshot, actions []Action) StatusModel {
	keys := make(keyMap, 0, len(actions)+1)
	for _, a := range actions {
		keys = append(keys, a.Binding)
	}
	keys = append(keys, quitKey)
	return StatusModel{
		snap:    initial,
		actions: actions,
		keys:    keys,
		help:    help.New(),
		now:     time.Now,
	}
}

// Init initializes the Bubble Tea model
func (m StatusModel) Init() tea.Cmd {
	return nil
}

func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.help.Width = msg.Width

	case SnapshotMsg:
		prev := m.snap
		m.snap = audio.Snapshot(msg)
		if !m.seen || prev.FocusState() != m.snap.FocusState() {
			m.addEvent(fmt.Sprintf("car focus %v", m.snap.FocusState()))
		}
		m.seen = true

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
		for _, a := range m.actions {
			if key.Matches(msg, a.Binding) {
				if line := a.Run(); line != "" {
					m.addEvent(line)
				}
				break
			}
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderStatus())
	}
	return m, nil
}

func (m *StatusModel) addEvent(line string) {
	m.events = append(m.events, m.now().Format("15:04:05.000")+" "+line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// View renders the UI
func (m StatusModel) View() string {
	title := titleStyle.Render("Car Audio Focus")
	if !m.ready {
		return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.renderStatus(), m.help.View(m.keys))
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), m.help.View(m.keys))
}

func (m StatusModel) renderStatus() string {
	s := m.snap
	var sb strings.Builder

	state := highlightStyle.Render(s.State.String())
	if s.State == hal.FocusStateLoss || s.State == hal.FocusStateLossTransient ||
		s.State == hal.FocusStateLossTransientExclusive {
		state = lossStyle.Render(s.State.String())
	}
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	row("Car focus", state)
	row("Streams", fmt.Sprintf("0x%x", s.Streams))
	row("External", s.ExternalFocus.String())
	row("Contexts", fmt.Sprintf("0x%x", s.Contexts))
	if s.LastRequest != nil {
		row("Last request", s.LastRequest.String())
	} else {
		row("Last request", "-")
	}
	if s.Top != nil {
		row("Top holder", fmt.Sprintf("%s %v (%v)", s.Top.ClientID, s.Top.Gain, s.Top.Usage()))
	} else {
		row("Top holder", "-")
	}
	row("Radio", onOff(s.RadioActive))
	row("Call", onOff(s.CallActive))
	row("Bottom focus", s.BottomFocus.String())
	if s.Latency.Count > 0 {
		row("Round trip", fmt.Sprintf("n=%d mean=%s p95=%s", s.Latency.Count, s.Latency.Mean, s.Latency.P95))
	}

	if len(s.StreamStatus) > 0 {
		sb.WriteString("\n")
		for _, st := range s.StreamStatus {
			line := fmt.Sprintf("stream %d  volume %d  active %s", st.Stream, st.Volume, onOff(st.Active))
			if st.HasLimit {
				line += fmt.Sprintf("  limit %d", st.Limit)
			}
			sb.WriteString(infoStyle.Render(line))
			sb.WriteString("\n")
		}
	}

	if len(m.events) > 0 {
		sb.WriteString("\n")
		for _, e := range m.events {
			sb.WriteString(e)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Observer forwards snapshots to a running program.
func Observer(p *tea.Program) audio.FocusObserver {
	return audio.ObserverFunc(func(s audio.Snapshot) {
		p.Send(SnapshotMsg(s))
	})
}

// Run starts the program and blocks until the user quits. The program is
// handed to attach before it runs so snapshots can be forwarded to it.
func Run(model StatusModel, attach func(p *tea.Program)) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	if attach != nil {
		attach(p)
	}
	_, err := p.Run()
	return err
}
