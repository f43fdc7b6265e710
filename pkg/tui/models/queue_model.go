package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/tui"
	"github.com/go-go-golems/cdslive/pkg/tui/styles"
)

// statusViews are the status sets the queue page cycles through.
var statusViews = [][]queue.Status{
	queue.DefaultStatuses,
	{queue.StatusWaiting},
	{queue.StatusBuilding},
}

type QueueModel struct {
	state queue.State
	view  int

	width  int
	height int

	tbl table.Model
	now func() time.Time
}

func NewQueueModel() QueueModel {
	tbl := table.New(
		table.WithColumns(queueColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	theme := styles.DefaultTheme()
	st := table.DefaultStyles()
	st.Header = st.Header.Foreground(theme.Primary).Bold(true)
	st.Selected = theme.Selected
	tbl.SetStyles(st)
	return QueueModel{tbl: tbl, now: time.Now}
}

func queueColumns(width int) []table.Column {
	fixed := 8 + 10 + 10
	flex := width - fixed - 8
	if flex < 40 {
		flex = 40
	}
	return []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Status", Width: 10},
		{Title: "Project", Width: flex / 4},
		{Title: "Workflow", Width: flex / 4},
		{Title: "Job", Width: flex / 4},
		{Title: "Assigned", Width: flex / 4},
		{Title: "Queued", Width: 10},
	}
}

// Statuses is the status set currently displayed.
func (m QueueModel) Statuses() []queue.Status {
	return statusViews[m.view]
}

func (m QueueModel) WithSize(width, height int) QueueModel {
	m.width, m.height = width, height
	h := height - 4
	if h < 3 {
		h = 3
	}
	m.tbl.SetColumns(queueColumns(width))
	m.tbl.SetWidth(width)
	m.tbl.SetHeight(h)
	return m.refreshRows()
}

func (m QueueModel) WithState(st queue.State) QueueModel {
	m.state = st
	return m.refreshRows()
}

func (m QueueModel) Update(msg tea.Msg) (QueueModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "s":
			m.view = (m.view + 1) % len(statusViews)
			m = m.refreshRows()
			statuses := m.Statuses()
			return m, func() tea.Msg { return tui.RefreshQueueMsg{Statuses: statuses} }
		case "r":
			statuses := m.Statuses()
			return m, func() tea.Msg { return tui.RefreshQueueMsg{Statuses: statuses} }
		}
	}
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// Selected returns the entry under the cursor.
func (m QueueModel) Selected() (queue.Entry, bool) {
	row := m.tbl.SelectedRow()
	if row == nil {
		return queue.Entry{}, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return queue.Entry{}, false
	}
	for _, e := range m.state.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return queue.Entry{}, false
}

func (m QueueModel) refreshRows() QueueModel {
	entries := m.state.Filter(m.Statuses())
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			strconv.FormatInt(e.ID, 10),
			styles.JobStatusIcon(string(e.Status)) + " " + string(e.Status),
			paramOr(e, "cds.project"),
			paramOr(e, "cds.workflow"),
			paramOr(e, "cds.job"),
			e.AssignedTo(),
			m.age(e.Queued),
		})
	}
	m.tbl.SetRows(rows)
	return m
}

func (m QueueModel) age(queued int64) string {
	if queued <= 0 {
		return "-"
	}
	d := m.now().Sub(time.Unix(queued, 0)).Truncate(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func paramOr(e queue.Entry, name string) string {
	if v, ok := e.Param(name); ok {
		return v
	}
	return "-"
}

func (m QueueModel) View() string {
	theme := styles.DefaultTheme()

	names := make([]string, 0, len(m.Statuses()))
	for _, s := range m.Statuses() {
		names = append(names, string(s))
	}
	count := len(m.state.Filter(m.Statuses()))
	title := theme.Title.Render(fmt.Sprintf("Queue (%d)", count)) + "  " +
		theme.TitleMuted.Render(strings.Join(names, ", "))

	status := theme.TitleMuted.Render("[s] statuses  [r] refresh  [↑/↓] move")
	switch {
	case m.state.Loading:
		status = theme.StatusWaiting.Render("loading…")
	case m.state.Err != "":
		status = theme.StatusFailed.Render("error: " + m.state.Err)
	}

	body := m.tbl.View()
	if count == 0 && !m.state.Loading {
		body = theme.TitleMuted.Render("(queue is empty)")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, theme.Border.Render(body), status)
}
