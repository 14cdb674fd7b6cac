// Package version holds build metadata injected via ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by
// `go install module@version` when no ldflags were set.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return Version
}

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("facetdex %s (commit %s, built %s)", Resolved(), Commit, Date)
}
