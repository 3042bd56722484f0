// Package version provides build-time version information for SubnetSweep.
// Variables are injected at build time via ldflags.
package version

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("SubnetSweep %s (commit: %s, built: %s, go: %s, %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version string (e.g., "0.1.0" or "dev").
func Short() string {
	return Version
}

// Fields returns version info as log fields for the startup line.
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("build_date", BuildDate),
		zap.String("go_version", runtime.Version()),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
	}
}
