// Package buildinfo carries version identifiers stamped at build time
// via -ldflags.
package buildinfo

import "fmt"

var (
	// Version is the semantic version of this build.
	Version = "0.0.0-dev"

	// Commit is the VCS revision of this build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// UserAgent returns the User-Agent header for outbound federation
// requests, identifying this node by address.
func UserAgent(address string) string {
	return fmt.Sprintf("AVR/%s (Server; %s)", Version, address)
}
