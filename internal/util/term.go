package util

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// ShouldUseColors determines if coloured output should be used.
// See https://no-color.org/ for the NO_COLOR convention.
func ShouldUseColors() bool {
	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		return false
	}

	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		return forceColor != "0"
	}

	if bbColors := os.Getenv("BACKENDBUDDY_FORCE_COLORS"); bbColors != "" {
		return strings.ToLower(bbColors) == "true"
	}

	return IsTerminal()
}
