package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the adaptive colors used by every renderer in this package.
type Theme struct {
	Primary lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
	Text    lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// DefaultTheme returns the Catppuccin Latte/Mocha palette.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{Light: "#8839ef", Dark: "#cba6f7"},
		Success: lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"},
		Warning: lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"},
		Error:   lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"},
		Info:    lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"},
		Text:    lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"},
		Muted:   lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#a6adc8"},
		Border:  lipgloss.AdaptiveColor{Light: "#acb0be", Dark: "#585b70"},
	}
}

// StyleHeader creates a styled header
func StyleHeader(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
}

// StyleMuted creates muted text styling
func StyleMuted(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Muted)
}

// StyleBadge renders a short bold label in color.
func StyleBadge(color lipgloss.AdaptiveColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// StyleCard creates a bordered container
func StyleCard(width int, theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)
}
