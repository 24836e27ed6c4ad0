package ui

import "github.com/charmbracelet/lipgloss"

// Palette (ANSI 256).
var (
	inkBright = lipgloss.Color("255")
	inkDim    = lipgloss.Color("245")
	inkFaint  = lipgloss.Color("239")
	accent    = lipgloss.Color("33")  // header and badge background
	live      = lipgloss.Color("42")  // collecting
	callout   = lipgloss.Color("213") // section titles, key hints
	alarm     = lipgloss.Color("203")
	barBg     = lipgloss.Color("235")
)

// padded is the base for single-line blocks: one cell of horizontal padding.
func padded() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

// pill is bright bold text on a solid background.
func pill(bg lipgloss.Color) lipgloss.Style {
	return padded().Bold(true).Foreground(inkBright).Background(bg)
}

var (
	Title = pill(accent)
	Badge = pill(accent)

	Collecting = padded().Bold(true).Foreground(live)
	Idle       = padded().Foreground(inkDim)

	StatLine      = padded().Foreground(inkDim)
	SummaryHeader = padded().Bold(true).Foreground(callout).MarginTop(1)

	StatusBar     = padded().Foreground(inkBright).Background(barBg)
	StatusBarKey  = lipgloss.NewStyle().Bold(true).Foreground(callout)
	StatusBarText = lipgloss.NewStyle().Foreground(inkDim)

	ErrorStyle = padded().Bold(true).Foreground(alarm)

	DebugPanel       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(inkFaint).Padding(1, 2)
	DebugHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(callout)
)
