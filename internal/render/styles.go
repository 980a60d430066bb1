package render

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#00FF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorYellow = lipgloss.Color("#FFFF00")
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)
)
