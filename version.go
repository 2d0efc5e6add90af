package avmap

import "fmt"

// Version constants.
const (
	Major = 0
	Minor = 1
	Patch = 0
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Major    uint8
	Minor    uint8
	Patch    uint8
	Describe string
}

// BuildInfo describes how the binary embedding this package was built.
type BuildInfo struct {
	Target   string
	Compiler string
}

// Version returns the version string of avmap.
func Version() string {
	return fmt.Sprintf("avmap %d.%d.%d", Major, Minor, Patch)
}

// GetVersionInfo returns version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Major:    Major,
		Minor:    Minor,
		Patch:    Patch,
		Describe: fmt.Sprintf("v%d.%d.%d", Major, Minor, Patch),
	}
}

// GetBuildInfo returns build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Target:   "pure-go",
		Compiler: "gc",
	}
}
