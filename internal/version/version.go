// Package version carries build metadata injected through -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders a one-line version banner.
func String() string {
	return "bingo " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// Short returns just the release version, used in status replies.
func Short() string {
	return Version
}
