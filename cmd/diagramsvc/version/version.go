// Package version holds build-time identifying information, set via
// -ldflags at build time the way the teacher's cmd/agentcli/version package
// is.
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a one-line version string for `diagramsvc version`.
func String() string {
	return fmt.Sprintf("diagramsvc %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
