package app

import "fmt"

// Build information, set with -ldflags at release time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// VersionString formats the build information for the version command.
func VersionString() string {
	return fmt.Sprintf("invscrape %s (commit %s, built %s)", BuildVersion, BuildCommit, BuildDate)
}
