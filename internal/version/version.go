// Package version holds build metadata injected via ldflags.
package version

import "fmt"

// Set at build time with:
//
//	-ldflags "-X trendpress/internal/version.Version=v1.2.3 ..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a single-line human readable version string.
func Info() string {
	return fmt.Sprintf("trendpress %s (commit %s, built %s)", Version, Commit, Date)
}
