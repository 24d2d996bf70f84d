// Package version holds build-time version information.
// The variables are intended to be overridden via -ldflags at build time.
package version

//nolint:gochecknoglobals // Populated by the linker at build time.
var (
	// Version is the application version.
	Version = "1.0.0"
	// Commit is the git commit hash the binary was built from.
	Commit = "none"
	// BuildTime is the timestamp of the build.
	BuildTime = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Full returns the version together with commit and build time.
func Full() string {
	return "version: " + Version + ", commit: " + Commit + ", built at: " + BuildTime
}
