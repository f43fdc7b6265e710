package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/cdslive/pkg/tui/styles"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
)

// RunsModel lists the workflow runs seen on the push connection.
type RunsModel struct {
	runs []workflowrun.Run

	tbl table.Model
}

func NewRunsModel() RunsModel {
	tbl := table.New(
		table.WithColumns(runColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	theme := styles.DefaultTheme()
	st := table.DefaultStyles()
	st.Header = st.Header.Foreground(theme.Primary).Bold(true)
	st.Selected = theme.Selected
	tbl.SetStyles(st)
	return RunsModel{tbl: tbl}
}

func runColumns(width int) []table.Column {
	flex := width - 8 - 12 - 8 - 20 - 10
	if flex < 30 {
		flex = 30
	}
	return []table.Column{
		{Title: "Project", Width: flex / 2},
		{Title: "Workflow", Width: flex / 2},
		{Title: "#", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Nodes", Width: 8},
		{Title: "Updated", Width: 20},
	}
}

func (m RunsModel) WithSize(width, height int) RunsModel {
	h := height - 4
	if h < 3 {
		h = 3
	}
	m.tbl.SetColumns(runColumns(width))
	m.tbl.SetWidth(width)
	m.tbl.SetHeight(h)
	return m
}

func (m RunsModel) WithRuns(runs []workflowrun.Run) RunsModel {
	m.runs = runs
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, table.Row{
			r.ProjectKey,
			r.WorkflowName,
			strconv.FormatInt(r.Number, 10),
			styles.JobStatusIcon(r.Status) + " " + r.Status,
			nodeProgress(r),
			updatedAt(r),
		})
	}
	m.tbl.SetRows(rows)
	return m
}

func (m RunsModel) Len() int { return len(m.runs) }

func (m RunsModel) Update(msg tea.Msg) (RunsModel, tea.Cmd) {
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// nodeProgress counts finished node runs against all known ones.
func nodeProgress(r workflowrun.Run) string {
	if len(r.Nodes) == 0 {
		return "-"
	}
	done := 0
	for _, n := range r.Nodes {
		switch n.Status {
		case "Success", "Fail", "Stopped", "Skipped", "Disabled":
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(r.Nodes))
}

func updatedAt(r workflowrun.Run) string {
	ts := r.LastModified
	if ts == 0 {
		ts = r.Start
	}
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
}

func (m RunsModel) View() string {
	theme := styles.DefaultTheme()
	title := theme.Title.Render(fmt.Sprintf("Workflow runs (%d)", len(m.runs)))
	body := m.tbl.View()
	if len(m.runs) == 0 {
		body = theme.TitleMuted.Render("(no workflow run events yet)")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, theme.Border.Render(body))
}
