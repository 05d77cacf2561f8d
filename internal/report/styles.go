package report

import "github.com/charmbracelet/lipgloss"

// ── Color Palette (muted, matching the agent family) ──

var (
	ColorText    = lipgloss.Color("#c8c8d4")
	ColorTextDim = lipgloss.Color("#6b6b7b")
	ColorBorder  = lipgloss.Color("#2a2a3d")

	ColorAlert = lipgloss.Color("#ef4444")
	ColorOK    = lipgloss.Color("#22c55e")
	ColorWarn  = lipgloss.Color("#f59e0b")
)

// ── Reusable Styles ──

var (
	SuspiciousStyle = lipgloss.NewStyle().
			Foreground(ColorAlert).
			Bold(true)

	LegitimateStyle = lipgloss.NewStyle().
			Foreground(ColorOK).
			Bold(true)

	EvidenceStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	RuleStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorWarn)
)
