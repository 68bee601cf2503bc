package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	session   lipgloss.Style
	detail    lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	active    lipgloss.Style
	waiting   lipgloss.Style
	completed lipgloss.Style
	failed    lipgloss.Style
	meta      lipgloss.Style
	statKey   lipgloss.Style
	actor     lipgloss.Style
	agent     lipgloss.Style
	warning   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		active:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		waiting:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		completed: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		failed:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		statKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		actor:     lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		agent:     lipgloss.NewStyle().Foreground(lipgloss.Color("150")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
