package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
	"github.com/dd0wney/cluso-botnetsim/pkg/stream"
)

// Styles

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginBottom(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2)

	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type view int

const (
	timelineView view = iota
	ticksView
	numViews
)

type keyMap struct {
	Tab  key.Binding
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch view"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Quit}, {k.Up, k.Down}}
}

// receiver is the part of *stream.Subscriber the model needs.
type receiver interface {
	Recv(ctx context.Context) (stream.Message, error)
}

type tickEventMsg propagation.TickEvent

type runDoneMsg stream.RunDone

type streamErrMsg struct{ err error }

// waitForMessage blocks on the stream and turns the next message into a tea.Msg.
func waitForMessage(ctx context.Context, r receiver) tea.Cmd {
	return func() tea.Msg {
		msg, err := r.Recv(ctx)
		switch {
		case err != nil:
			return streamErrMsg{err: err}
		case msg.Tick != nil:
			return tickEventMsg(*msg.Tick)
		case msg.Done != nil:
			return runDoneMsg(*msg.Done)
		}
		return streamErrMsg{err: errors.New("empty stream message")}
	}
}

type model struct {
	ctx         context.Context
	sub         receiver
	addr        string
	currentView view
	runID       string
	events      []propagation.TickEvent
	done        *stream.RunDone
	err         error
	spinner     spinner.Model
	tickTable   table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	startTime   time.Time
}

func initialModel(ctx context.Context, sub receiver, addr string) model {
	columns := []table.Column{
		{Title: "Tick", Width: 6},
		{Title: "Infected", Width: 10},
		{Title: "New", Width: 6},
		{Title: "Recovered", Width: 10},
		{Title: "Fraction", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:       ctx,
		sub:       sub,
		addr:      addr,
		spinner:   sp,
		tickTable: t,
		help:      help.New(),
		keys:      keys,
		startTime: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForMessage(m.ctx, m.sub),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickEventMsg:
		ev := propagation.TickEvent(msg)
		if ev.RunID != m.runID {
			// a new run started
			m.runID = ev.RunID
			m.events = nil
			m.done = nil
		}
		m.events = append(m.events, ev)
		m.err = nil
		m.tickTable.SetRows(tableRows(m.events))
		return m, waitForMessage(m.ctx, m.sub)

	case runDoneMsg:
		done := stream.RunDone(msg)
		m.done = &done
		return m, waitForMessage(m.ctx, m.sub)

	case streamErrMsg:
		if errors.Is(msg.err, context.Canceled) || errors.Is(msg.err, context.DeadlineExceeded) {
			return m, tea.Quit
		}
		m.err = msg.err
		return m, waitForMessage(m.ctx, m.sub)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % numViews
			return m, nil
		}
	}

	if m.currentView == ticksView {
		m.tickTable, cmd = m.tickTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func tableRows(events []propagation.TickEvent) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, ev := range events {
		fraction := 0.0
		if ev.Nodes > 0 {
			fraction = float64(ev.Infected) / float64(ev.Nodes)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", ev.Tick),
			fmt.Sprintf("%d", ev.Infected),
			fmt.Sprintf("%d", ev.NewInfections),
			fmt.Sprintf("%d", ev.Recoveries),
			fmt.Sprintf("%.3f", fraction),
		})
	}
	return rows
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Botnet propagation monitor"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case timelineView:
		s.WriteString(m.renderTimeline())
	case ticksView:
		s.WriteString(m.tickTable.View())
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderStatus())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Timeline", "Ticks"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderTimeline() string {
	if len(m.events) == 0 {
		return statsBoxStyle.Render("No ticks received yet")
	}

	width := 40
	if m.width > 40 {
		width = m.width - 30
	}

	peak := 0
	for _, ev := range m.events {
		peak = max(peak, ev.Infected)
	}

	// newest ticks only, to fit the terminal
	events := m.events
	if m.height > 12 && len(events) > m.height-12 {
		events = events[len(events)-(m.height-12):]
	}

	var b strings.Builder
	for _, ev := range events {
		n := 0
		if peak > 0 {
			n = ev.Infected * width / peak
		}
		fmt.Fprintf(&b, "t=%-5d %6d %s\n", ev.Tick, ev.Infected, barStyle.Render(strings.Repeat("█", n)))
	}

	last := m.events[len(m.events)-1]
	stats := fmt.Sprintf("Run:      %s\nNodes:    %d\nInfected: %d\nPeak:     %d",
		m.runID, last.Nodes, last.Infected, peak)

	return lipgloss.JoinHorizontal(lipgloss.Top, statsBoxStyle.Render(stats), "  ", b.String())
}

func (m model) renderStatus() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("✗ " + m.err.Error())
	case m.done != nil && m.done.Success:
		return successStyle.Render(fmt.Sprintf("✓ run %s finished after %d ticks, %d infected", m.done.RunID, m.done.Ticks, m.done.FinalInfected))
	case m.done != nil:
		return errorStyle.Render(fmt.Sprintf("✗ run %s failed its invariants after %d ticks, %d infected", m.done.RunID, m.done.Ticks, m.done.FinalInfected))
	default:
		return fmt.Sprintf("%s listening on %s (%s)", m.spinner.View(), m.addr, time.Since(m.startTime).Round(time.Second))
	}
}
