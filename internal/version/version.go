// Package version carries build metadata injected with -ldflags -X.
package version

import "fmt"

// These variables are populated by the Go linker (LDFLAGS) at build time.
var (
	Version    = "dev"     // Default value if not built with LDFLAGS
	CommitHash = "unknown" // Default value
	BuildDate  = "unknown" // Default value
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("nitcheck %s (commit %s, built %s)", Version, CommitHash, BuildDate)
}
