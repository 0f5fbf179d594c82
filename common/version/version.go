// Package version holds build metadata injected at link time via
// -ldflags "-X github.com/bdobrica/kioku/common/version.Version=...".
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
