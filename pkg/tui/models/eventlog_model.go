package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/cdslive/pkg/tui"
	"github.com/go-go-golems/cdslive/pkg/tui/styles"
)

// EventLogModel is a scrollable, filterable tail of push events.
type EventLogModel struct {
	max     int
	entries []tui.EventEntry

	width  int
	height int

	searching bool
	search    textinput.Model
	filter    string

	vp viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	return EventLogModel{max: 500, search: search, vp: viewport.New(0, 0)}
}

func (m EventLogModel) Len() int { return len(m.entries) }

func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	h := height - 4
	if h < 3 {
		h = 3
	}
	m.vp.Width = width
	m.vp.Height = h
	return m.render(false)
}

func (m EventLogModel) Append(e tui.EventEntry) EventLogModel {
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]tui.EventEntry{}, m.entries[len(m.entries)-m.max:]...)
	}
	return m.render(true)
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		switch k.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			return m.render(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		return m.render(true), nil
	case "c":
		m.entries = nil
		return m.render(true), nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

// Visible returns the entries matching the current filter.
func (m EventLogModel) Visible() []tui.EventEntry {
	if m.filter == "" {
		return m.entries
	}
	out := make([]tui.EventEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if strings.Contains(e.Text, m.filter) || strings.Contains(e.Source, m.filter) {
			out = append(out, e)
		}
	}
	return out
}

func (m EventLogModel) render(gotoBottom bool) EventLogModel {
	theme := styles.DefaultTheme()
	visible := m.Visible()
	lines := make([]string, 0, len(visible))
	for _, e := range visible {
		style := theme.TitleMuted
		switch e.Level {
		case tui.LevelError:
			style = theme.StatusFailed
		case tui.LevelWarn:
			style = lipgloss.NewStyle().Foreground(theme.Warning)
		}
		source := e.Source
		if source == "" {
			source = "push"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			theme.TitleMuted.Render(e.At.Format("15:04:05")),
			styles.LevelIcon(string(e.Level)),
			theme.KeybindKey.Render("["+source+"]"),
			style.Render(e.Text),
		))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()
	right := "[/] filter  [c] clear  [↑/↓] scroll"
	if m.filter != "" {
		right = fmt.Sprintf("filter=%q  %s", m.filter, right)
	}
	title := theme.Title.Render(fmt.Sprintf("Events (%d)", len(m.entries))) + "  " + theme.TitleMuted.Render(right)

	sections := []string{title}
	if m.searching {
		sections = append(sections, m.search.View())
	}
	if len(m.entries) == 0 {
		sections = append(sections, theme.Border.Render(theme.TitleMuted.Render("(no events yet)")))
	} else {
		sections = append(sections, theme.Border.Render(m.vp.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
