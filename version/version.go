// Package version holds build metadata, overridden at link time with
// -ldflags "-X github.com/TFMV/masquerade/version.Version=...".
package version

import "fmt"

var Version = "0.1.0"
var BuildDate = "2026-10-15"
var Commit = "dev"

func GetVersion() string {
	return Version
}

func GetBuildDate() string {
	return BuildDate
}

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("masquerade %s (commit %s, built %s)", Version, Commit, BuildDate)
}
