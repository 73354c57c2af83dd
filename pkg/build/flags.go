// SPDX-License-Identifier: MIT
//
// Package build carries the build metadata of the caraudio daemon. The
// application name, build timestamp, Git commit hash and semantic version
// are embedded at compile time using linker flags, for example:
//
//	go build -ldflags "-X caraudio/pkg/build.buildName=caraudiod \
//	    -X caraudio/pkg/build.buildVersion=0.3.0 ..."
//
// Binaries built without ldflags report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Vehicle audio focus arbiter"

// Info is the build metadata reported by the version command and the dump.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the info as "name version (commit, time)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "caraudiod",
		Description: Description,
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the package Info. Every missing flag is reported in the returned
// error; on error the development defaults stay in place.
func Initialize() error {
	var errs []error
	if buildName == "" {
		errs = append(errs, errors.New("BuildName is required"))
	}
	if buildTime == "" {
		errs = append(errs, errors.New("BuildTime is required"))
	}
	if buildCommit == "" {
		errs = append(errs, errors.New("BuildCommit is required"))
	}
	if buildVersion == "" {
		errs = append(errs, errors.New("BuildVersion is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
