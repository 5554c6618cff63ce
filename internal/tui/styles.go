package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#93C5FD"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#6EE7B7"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleSelected = lipgloss.NewStyle().Bold(true)
	styleCount    = lipgloss.NewStyle().Foreground(colorMuted).PaddingLeft(1)
	styleSuccess  = lipgloss.NewStyle().Foreground(colorSuccess)
	styleError    = lipgloss.NewStyle().Foreground(colorError)

	styleModal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)
