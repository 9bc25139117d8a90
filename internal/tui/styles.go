package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors - late-night situation room aesthetic
var (
	colorBrand   = lipgloss.Color("#00AAFF") // UN blue
	colorGold    = lipgloss.Color("#FFCC00") // headline gold
	colorSuccess = lipgloss.Color("#00FF66")
	colorError   = lipgloss.Color("#FF3366")
	colorMuted   = lipgloss.Color("#5555AA")
	colorBorder  = lipgloss.Color("#2A2A55")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			MarginBottom(1)

	// Speaker labels
	leaderStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	playerStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	worldStyle = lipgloss.NewStyle().
			Foreground(colorGold).
			Bold(true)

	crisisStyle = lipgloss.NewStyle().
			Foreground(colorGold)

	resolvedStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	dimmedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorBorder)
)
