package ui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan, headings
	colorAccent     = lipgloss.Color("#FFD700") // Gold, targets and new discoveries
	colorSuccess    = lipgloss.Color("#00E676") // Green, completed samples
	colorDanger     = lipgloss.Color("#FF5252") // Red, errors
	colorMuted      = lipgloss.Color("#636363") // Gray, de-emphasized
	colorMutedLight = lipgloss.Color("#8C8C8C") // Lighter gray, normal text
	colorBlue       = lipgloss.Color("#5B8DEF") // Blue, samples in progress
	colorBio        = lipgloss.Color("#7CFC00")
	colorGeo        = lipgloss.Color("#FF8C00")
)

// Progress icons for genus sampling.
const (
	iconDone     = "✓"
	iconWorking  = "◎"
	iconWaiting  = "·"
	iconTarget   = "▶"
	iconJumped   = "⇢"
	iconNewEntry = "★"
)

// Header styles.
var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMutedLight)
)

// Body row styles.
var (
	styleBodyName = lipgloss.NewStyle().
			Bold(true)

	styleTarget = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	styleBio = lipgloss.NewStyle().
			Foreground(colorBio)

	styleGeo = lipgloss.NewStyle().
			Foreground(colorGeo)
)

// Genus progress styles.
var (
	styleDone = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWorking = lipgloss.NewStyle().
			Foreground(colorBlue)

	styleWaiting = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleNew = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// styleError styles error prefixes.
var styleError = lipgloss.NewStyle().
	Foreground(colorDanger).
	Bold(true)
