// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time, e.g.
//
//	go build -ldflags "-X spectrum/pkg/build.buildVersion=v1.2.0 ..."
//
// Development builds run without it and report placeholder values.
package build

import (
	"errors"
	"fmt"
)

// ErrMissingFlag is reported for every ldflags value left empty.
var ErrMissingFlag = errors.New("build flag not set")

// Info is the application's build metadata.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the version line shown by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = defaults()

func defaults() Info {
	return Info{
		Name:        "spectrum",
		Description: "Real-time audio spectrum visualizer",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags values into Info. Values that were not
// provided keep their placeholder and are reported in the returned error,
// which callers may treat as a warning.
func Initialize() error {
	var errs []error
	set := func(dst *string, value, flag string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFlag, flag))
			return
		}
		*dst = value
	}

	info = defaults()
	set(&info.Name, buildName, "buildName")
	set(&info.Time, buildTime, "buildTime")
	set(&info.Commit, buildCommit, "buildCommit")
	set(&info.Version, buildVersion, "buildVersion")
	return errors.Join(errs...)
}

// Get returns the current build information.
func Get() Info {
	return info
}
