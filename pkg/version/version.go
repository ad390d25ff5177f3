// Package version holds the build version of the chunkstats binaries.
package version

import "runtime"

// Version is overridden at build time with
// -ldflags "-X github.com/getpup/chunkstats/pkg/version.Version=v1.2.3".
var Version = "0.1.0-dev"

// String returns the version with the Go runtime it was built with.
func String() string {
	return Version + " (" + runtime.Version() + ")"
}
