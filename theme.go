package secretary

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values. A negative
// index means no color.
type Theme struct {
	UserMsg int // User message accent
	Intent  int // Intent tag next to replies
	Error   int // Error messages
	Success int // Ready indicator
	Muted   int // Status bar, placeholders, link targets
	Accent  int // Headings, call to action
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		Intent:  3,
		Error:   1,
		Success: 2,
		Muted:   8,
		Accent:  5,
	}
}
