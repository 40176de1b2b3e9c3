package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	project  lipgloss.Style
	detail   lipgloss.Style
	active   lipgloss.Style
	warning  lipgloss.Style
	badge    lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	device   lipgloss.Style
	platform lipgloss.Style
	meta     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		project:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		badge:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		device:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(2),
		platform: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
