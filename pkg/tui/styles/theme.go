package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the queue viewer.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	Border     lipgloss.Style
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Selected   lipgloss.Style
	Header     lipgloss.Style
	KeybindKey lipgloss.Style

	StatusBuilding lipgloss.Style
	StatusWaiting  lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusDone     lipgloss.Style
}

func DefaultTheme() Theme {
	primary := lipgloss.Color("#7C3AED")
	secondary := lipgloss.Color("#06B6D4")
	success := lipgloss.Color("#22C55E")
	warning := lipgloss.Color("#EAB308")
	errorC := lipgloss.Color("#EF4444")
	muted := lipgloss.Color("#6B7280")
	text := lipgloss.Color("#F9FAFB")
	textDim := lipgloss.Color("#9CA3AF")

	return Theme{
		Primary:   primary,
		Secondary: secondary,
		Success:   success,
		Warning:   warning,
		Error:     errorC,
		Muted:     muted,
		Text:      text,
		TextDim:   textDim,

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(text),
		TitleMuted: lipgloss.NewStyle().Foreground(textDim),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(lipgloss.Color("#374151")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(muted),
		KeybindKey: lipgloss.NewStyle().Bold(true).Foreground(secondary),

		StatusBuilding: lipgloss.NewStyle().Foreground(secondary),
		StatusWaiting:  lipgloss.NewStyle().Foreground(warning),
		StatusFailed:   lipgloss.NewStyle().Foreground(errorC),
		StatusDone:     lipgloss.NewStyle().Foreground(success),
	}
}

func (t Theme) JobStatus(status string) lipgloss.Style {
	switch status {
	case "Building", "Checking":
		return t.StatusBuilding
	case "Waiting", "Pending":
		return t.StatusWaiting
	case "Fail", "Stopped":
		return t.StatusFailed
	case "Success":
		return t.StatusDone
	}
	return t.TitleMuted
}
