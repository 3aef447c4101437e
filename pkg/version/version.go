// Package version provides build and version information for echosearch.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version, set via ldflags at build time.
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// String returns the full version string.
func String() string {
	return fmt.Sprintf("echosearch %s (commit %s, built %s, %s)", Version, Commit, Date, GoVersion)
}
