package ui

import "github.com/charmbracelet/lipgloss"

// Category colors for visual differentiation
var categoryColors = map[string]lipgloss.Color{
	"tech":     lipgloss.Color("#58a6ff"), // blue
	"ai":       lipgloss.Color("#d2a8ff"), // purple
	"science":  lipgloss.Color("#7ee787"), // green
	"finance":  lipgloss.Color("#ffa657"), // orange
	"politics": lipgloss.Color("#ff7b72"), // coral
	"security": lipgloss.Color("#f85149"), // red
	"longform": lipgloss.Color("#d29922"), // amber
	"general":  lipgloss.Color("#8b949e"), // gray
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9d1d9")).
			Background(lipgloss.Color("#161b22"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e")).
			Background(lipgloss.Color("#161b22"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6e7681"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149"))

	sentinelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6e7681")).
			Italic(true)
)

func categoryStyle(category string) lipgloss.Style {
	color, ok := categoryColors[category]
	if !ok {
		color = categoryColors["general"]
	}
	return lipgloss.NewStyle().Foreground(color)
}
