package tui

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles for the review screen.
type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cursor lipgloss.Style
	kind   lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	warn   lipgloss.Style
	hint   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 2),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),
		kind: lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")),
		good: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		bad: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}
