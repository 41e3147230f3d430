package common

import (
	"fmt"
	"runtime"
)

// VersionInfo carries the build metadata injected through ldflags.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Platform  string
}

// GetVersionInfo assembles the version information for display.
func GetVersionInfo(version, commit, date string) *VersionInfo {
	if version == "" {
		version = "dev"
	}
	return &VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the version info as a multi-line block.
func (v *VersionInfo) String() string {
	s := fmt.Sprintf("regmaint %s", v.Version)
	if v.Commit != "" {
		s += fmt.Sprintf("\n  commit:     %s", v.Commit)
	}
	if v.BuildDate != "" {
		s += fmt.Sprintf("\n  built:      %s", v.BuildDate)
	}
	s += fmt.Sprintf("\n  go version: %s", v.GoVersion)
	s += fmt.Sprintf("\n  platform:   %s", v.Platform)
	return s
}
