package report

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("#A8D8EA")
	ColorDeep   = lipgloss.Color("#596E79")
	ColorAlert  = lipgloss.Color("#FF6B6B")
	ColorGood   = lipgloss.Color("#4ECDC4")
	ColorWarn   = lipgloss.Color("#FFE66D")
)

var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Italic(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			Margin(0, 1)

	StyleLabel = lipgloss.NewStyle().Foreground(ColorDeep)
	StyleGood  = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleBad   = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	StyleWarn  = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
)

// severityStyle colors a rule severity
func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case "CRITICAL", "HIGH":
		return StyleBad
	case "MEDIUM":
		return StyleWarn
	}
	return StyleGood
}
