// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags. This information can be useful for debugging,
// logging, and displaying version information to users.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Real-time audio visualizer with a browser preview"

// ErrMissingFlag is returned by Initialize when a linker flag was not set.
var ErrMissingFlag = errors.New("build flag missing")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the flags for version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Development builds fall back to the defaults below.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "waveviz",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. Each missing flag is reported wrapping
// ErrMissingFlag and leaves the defaults in place.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("%w: BuildName is required", ErrMissingFlag)
	}
	if buildTime == "" {
		return fmt.Errorf("%w: BuildTime is required", ErrMissingFlag)
	}
	if buildCommit == "" {
		return fmt.Errorf("%w: BuildCommit is required", ErrMissingFlag)
	}
	if buildVersion == "" {
		return fmt.Errorf("%w: BuildVersion is required", ErrMissingFlag)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information. Call Initialize
// first to pick up linker-provided values.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
