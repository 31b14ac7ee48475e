// Package version exposes build-time version metadata, set via -ldflags at
// release build time and falling back to Go's embedded module build info
// for `go install`/`go run` builds.
package version

import "runtime/debug"

// Version and Commit are overridden at release build time via:
//
//	go build -ldflags "-X github.com/nerved-io/lsp-ws-proxy/internal/version.Version=v1.2.3 -X .../version.Commit=abcdef"
var (
	Version = "dev"
	Commit  = "unknown"
)

// BuildInfo is the machine-readable form printed by `version -o json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
}

// GetVersion returns the human-readable version string.
func GetVersion() string {
	return Version
}

// GetBuildInfo returns the full structured build info, falling back to the
// Go runtime's embedded module info when the ldflags overrides were not set.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version: Version,
		Commit:  Commit,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" && info.Commit == "unknown" {
				info.Commit = setting.Value
			}
		}
	}
	return info
}
