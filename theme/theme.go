package theme

import (
	"github.com/pterm/pterm"
)

// Theme defines the colour scheme for terminal output.
type Theme struct {
	Debug *pterm.Style
	Info  *pterm.Style
	Warn  *pterm.Style
	Error *pterm.Style

	Muted     *pterm.Style
	Counts    pterm.Color
	Highlight *pterm.Style
	Success   *pterm.Style
}

// Default returns the default application theme.
func Default() *Theme {
	return &Theme{
		Debug: pterm.NewStyle(pterm.FgLightBlue),
		Info:  pterm.NewStyle(pterm.FgGreen),
		Warn:  pterm.NewStyle(pterm.FgYellow, pterm.Bold),
		Error: pterm.NewStyle(pterm.FgRed, pterm.Bold),

		Muted:     pterm.NewStyle(pterm.FgGray),
		Counts:    pterm.FgCyan,
		Highlight: pterm.NewStyle(pterm.FgCyan, pterm.Bold),
		Success:   pterm.NewStyle(pterm.FgGreen, pterm.Bold),
	}
}

// GetTheme resolves a theme by name, falling back to the default.
func GetTheme(name string) *Theme {
	switch name {
	case "", "default":
		return Default()
	default:
		return Default()
	}
}
