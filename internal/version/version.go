// Package version holds build information, set with
//
//	-ldflags "-X github.com/MrSnakeDoc/hajimi/internal/version.Version=v0.1.0 ..."
package version

import "runtime"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)
