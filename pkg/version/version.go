// Package version holds build metadata, overridden at link time via
// -ldflags "-X".
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
