// SPDX-License-Identifier: MIT
//
// Package build holds the metadata embedded into the binary at link time:
//
//	go build -ldflags "-X specview/pkg/build.buildName=specview \
//	  -X specview/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X specview/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X specview/pkg/build.buildVersion=0.1.0"
//
// Development builds set none of the flags and report "unknown".
package build

import (
	"errors"
	"fmt"
	"strings"
)

const description = "Render audio spectrograms from files or live capture"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        "specview",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
}

// Initialize copies the ldflags variables into the build information. A
// build that sets none of them keeps the development defaults; one that sets
// only some is rejected.
func Initialize() error {
	values := []struct {
		name  string
		value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}

	var set int
	var missing []string
	for _, v := range values {
		if v.value == "" {
			missing = append(missing, v.name)
		} else {
			set++
		}
	}

	if set == 0 {
		return nil
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete build flags: %w",
			errors.New(strings.Join(missing, ", ")+" required"))
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for --version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
