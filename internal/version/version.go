// Package version holds build information injected with -ldflags "-X ...".
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("cnc-relay %s (%s, built %s)", Version, GitSHA, BuildTime)
}
