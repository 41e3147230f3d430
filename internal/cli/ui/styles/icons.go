package styles

// Nerd Font icons for terminal output.
// These require a Nerd Font compatible terminal font.
const (
	// Status indicators
	IconSuccess = "" // nf-fa-check (U+F00C)
	IconError   = "" // nf-fa-times (U+F00D)
	IconWarning = "" // nf-fa-exclamation_triangle (U+F071)
	IconInfo    = "" // nf-fa-info_circle (U+F05A)
	IconPending = "" // nf-fa-clock_o (U+F017)

	// Objects
	IconContainer  = "" // nf-oct-container (U+F489)
	IconServer     = "" // nf-fa-server (U+F233)
	IconRepository = "" // nf-fa-archive (U+F187)
	IconTag        = "" // nf-fa-tag (U+F02B)

	// Actions
	IconDelete  = "" // nf-fa-trash (U+F1F8)
	IconRefresh = "" // nf-fa-refresh (U+F021)

	// UI elements
	IconBullet = "▸" // Simple triangle bullet
	IconDot    = "●" // Filled circle
)

// ASCII fallback alternatives for terminals without Nerd Fonts.
const (
	AsciiSuccess = "[OK]"
	AsciiError   = "[X]"
	AsciiWarning = "[!]"
	AsciiInfo    = "[i]"
	AsciiBullet  = ">"
)
