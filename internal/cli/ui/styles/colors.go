// Package styles provides the styling system for regmaint's terminal output.
// The palette targets dark terminal backgrounds.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Neutral colors - for text and backgrounds
	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")
	Neutral800 = lipgloss.Color("#262626")
	Neutral900 = lipgloss.Color("#171717")

	// Terminal neon colors
	NeonGreen  = lipgloss.Color("#00ff88")
	NeonCyan   = lipgloss.Color("#00ccff")
	NeonRed    = lipgloss.Color("#ff4444")
	NeonYellow = lipgloss.Color("#fbbf24")

	// Semantic colors
	ColorPrimary = NeonGreen
	ColorSuccess = NeonGreen
	ColorWarning = NeonYellow
	ColorError   = NeonRed
	ColorInfo    = NeonCyan

	// Text colors
	ColorText       = Neutral200
	ColorTextMuted  = Neutral500
	ColorTextBright = lipgloss.Color("#ffffff")

	// Background colors
	ColorBg      = lipgloss.Color("#000000")
	ColorBgMuted = Neutral800

	// Border colors
	ColorBorder = Neutral700
)
