// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94")).
			Bold(true)

	// Bar colours from the bottom row up.
	barLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	barMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C547"))
	barHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
)

// Partial cell glyphs, empty to full.
var barBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// rowStyle picks the colour for a row at relative height pos in [0, 1).
func rowStyle(pos float64) lipgloss.Style {
	switch {
	case pos >= 0.75:
		return barHigh
	case pos >= 0.45:
		return barMid
	default:
		return barLow
	}
}
