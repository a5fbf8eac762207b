package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#89b4fa")
	colorMuted  = lipgloss.Color("#7f849c")
	colorError  = lipgloss.Color("#f38ba8")
	colorHint   = lipgloss.Color("#a6e3a1")

	titleStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	underlineStyle = lipgloss.NewStyle().Underline(true).Foreground(colorError)
	hintStyle      = lipgloss.NewStyle().Foreground(colorHint)
	layerStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 2)
)
