package version

import (
	"fmt"

	"github.com/fatih/color"
)

// Build metadata, overridable with -ldflags "-X lirc/internal/version.Version=...".
var (
	Version    = "0.1.0-dev"
	GitCommit  = ""
	GitMessage = ""
	BuildDate  = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Pretty returns Version with each numeric component colored.
// Anything that is not "major.minor.patch[-suffix]" is returned unchanged.
func Pretty() string {
	var major, minor, patch int
	var rest string
	n, err := fmt.Sscanf(Version, "%d.%d.%d%s", &major, &minor, &patch, &rest)
	if err != nil && n < 3 {
		return Version
	}
	return fmt.Sprintf("%s.%s.%s%s",
		majorColor.Sprint(major),
		minorColor.Sprint(minor),
		patchColor.Sprint(patch),
		rest,
	)
}
