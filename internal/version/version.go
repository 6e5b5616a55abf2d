package version

import (
	"fmt"
	"log"
	"strings"
)

var (
	Name        = "backendbuddy"
	Description = "Share your dev server without it falling over"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "nowish"
)

const (
	GithubHomeUri = "https://github.com/backendbuddy/backendbuddy"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s - %s\n", Name, Version, Description))
	b.WriteString(fmt.Sprintf(" %s\n", GithubHomeUri))

	if extendedInfo {
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
	}

	vlog.Println(b.String())
}
