// Package version provides build metadata, set with -ldflags at release time.
package version

import (
	"fmt"
	"runtime"
)

// Name identifies the program in user agents and generated files.
const Name = "navtrack"

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit hash of the build
	BuildCommit = "unknown"

	// BuildDate is the date and time of the build
	BuildDate = "unknown"

	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()
)

// String returns a formatted version string
func String() string {
	return fmt.Sprintf("%s version %s (%s) built on %s with %s",
		Name, BuildVersion, BuildCommit, BuildDate, GoVersion)
}

// UserAgent is sent to external routing services.
func UserAgent() string {
	return Name + "/" + BuildVersion
}

// Info returns a map of version information
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"commit":     BuildCommit,
		"build_date": BuildDate,
		"go_version": GoVersion,
	}
}
