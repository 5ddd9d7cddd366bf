package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header     lipgloss.Style
	Pane       lipgloss.Style
	ActivePane lipgloss.Style
	DialBuffer lipgloss.Style
	StatusBar  lipgloss.Style
	StatusGood lipgloss.Style
	StatusWarn lipgloss.Style
	Caller     lipgloss.Style
	Persona    lipgloss.Style
	Pending    lipgloss.Style
	BookEntry  lipgloss.Style
	BookCursor lipgloss.Style
	Help       lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true).
			Padding(0, 1),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		ActivePane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("226")).
			Padding(0, 1),
		DialBuffer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		StatusGood: lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")),
		StatusWarn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		Caller: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")),
		Persona: lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),
		BookEntry: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		BookCursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
