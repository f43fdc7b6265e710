package models

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/tui"
	"github.com/go-go-golems/cdslive/pkg/tui/styles"
)

type ViewID string

const (
	ViewQueue  ViewID = "queue"
	ViewEvents ViewID = "events"
	ViewRuns   ViewID = "runs"
)

var viewOrder = []ViewID{ViewQueue, ViewEvents, ViewRuns}

type RootOptions struct {
	Host string
	// Refresh is called when the queue view asks for a refetch.
	Refresh func(statuses []queue.Status) error
}

type RootModel struct {
	opts RootOptions

	width  int
	height int

	active ViewID
	conn   conn.State

	queue  QueueModel
	events EventLogModel
	runs   RunsModel
}

func NewRootModel(opts RootOptions) RootModel {
	return RootModel{
		opts:   opts,
		active: ViewQueue,
		conn:   conn.Disconnected,
		queue:  NewQueueModel(),
		events: NewEventLogModel(),
		runs:   NewRunsModel(),
	}
}

func (m RootModel) Init() tea.Cmd { return nil }

func (m RootModel) Active() ViewID { return m.active }

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m.queue = m.queue.WithSize(v.Width, v.Height-2)
		m.events = m.events.WithSize(v.Width, v.Height-2)
		m.runs = m.runs.WithSize(v.Width, v.Height-2)
		return m, nil

	case tea.KeyMsg:
		if m.active == ViewEvents && m.events.Searching() {
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(v)
			return m, cmd
		}
		switch v.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.active = nextView(m.active)
			return m, nil
		}
		var cmd tea.Cmd
		switch m.active {
		case ViewEvents:
			m.events, cmd = m.events.Update(v)
		case ViewRuns:
			m.runs, cmd = m.runs.Update(v)
		default:
			m.queue, cmd = m.queue.Update(v)
		}
		return m, cmd

	case tui.QueueSnapshotMsg:
		m.queue = m.queue.WithState(v.State)
		return m, nil

	case tui.RunsMsg:
		m.runs = m.runs.WithRuns(v.Runs)
		return m, nil

	case tui.EventLineMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil

	case tui.OperationMsg:
		level := tui.LevelInfo
		if v.Operation.Failed() {
			level = tui.LevelError
		}
		text := fmt.Sprintf("operation %s %s", v.Operation.UUID, v.Operation.Status)
		if v.Operation.Error != "" {
			text += ": " + v.Operation.Error
		}
		m.events = m.events.Append(tui.EventEntry{At: time.Now(), Source: "operation", Level: level, Text: text})
		return m, nil

	case tui.ConnStateMsg:
		m.conn = v.State
		return m, nil

	case tui.RefreshQueueMsg:
		if m.opts.Refresh == nil {
			return m, nil
		}
		// off the event loop: the refresh publishes snapshots back to us
		refresh, statuses := m.opts.Refresh, v.Statuses
		return m, func() tea.Msg {
			if err := refresh(statuses); err != nil {
				return tui.EventLineMsg{Entry: tui.EventEntry{At: time.Now(), Source: "queue", Level: tui.LevelError, Text: err.Error()}}
			}
			return nil
		}
	}
	return m, nil
}

func (m RootModel) View() string {
	theme := styles.DefaultTheme()

	tabs := ""
	for _, id := range viewOrder {
		label := " " + string(id) + " "
		if id == m.active {
			tabs += theme.Selected.Render(label)
		} else {
			tabs += theme.TitleMuted.Render(label)
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.Title.Render("cdslive "),
		theme.TitleMuted.Render(m.opts.Host+" "),
		styles.ConnIcon(m.conn)+" "+string(m.conn)+"  ",
		tabs,
		theme.TitleMuted.Render("  (tab switch, q quit)"),
	)

	var body string
	switch m.active {
	case ViewEvents:
		body = m.events.View()
	case ViewRuns:
		body = m.runs.View()
	default:
		body = m.queue.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func nextView(v ViewID) ViewID {
	for i, id := range viewOrder {
		if id == v {
			return viewOrder[(i+1)%len(viewOrder)]
		}
	}
	return ViewQueue
}
