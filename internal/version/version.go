// Package version carries build metadata injected with -ldflags.
package version

var (
	Version = "v0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for --version output.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
