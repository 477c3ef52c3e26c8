// Package version holds build-time identity information, injected via
// -ldflags at release time. The zero values below are used for local
// "go build" invocations.
package version

var (
	// Version is the semantic version of this build, e.g. "0.4.1".
	Version = "dev"
	// BuildTime is the UTC build timestamp in RFC 3339 form.
	BuildTime = "unknown"
	// Commit is the git commit hash this binary was built from.
	Commit = "unknown"
)
