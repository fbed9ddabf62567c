// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the version of spvpeer and the user agent it
// advertises.
package version

import (
	"fmt"
	"strings"
)

const (
	// semanticAlphabet defines the allowed characters for the pre-release
	// portion of a semantic version string.
	semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

	// semanticBuildAlphabet defines the allowed characters for the build
	// portion of a semantic version string.
	semanticBuildAlphabet = semanticAlphabet + "."
)

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (http://semver.org/).
const (
	Major uint = 0
	Minor uint = 3
	Patch uint = 0
)

// AppName is the user agent name advertised to peers.
const AppName = "spvpeer"

var (
	// PreRelease is defined as a variable so it can be overridden during the
	// build process with:
	// '-ldflags "-X github.com/spvkit/spvpeer/internal/version.PreRelease=foo"'
	// if needed.  Characters outside semanticAlphabet are dropped.
	PreRelease = "beta"

	// BuildMetadata is defined as a variable so it can be overridden during
	// the build process with:
	// '-ldflags "-X github.com/spvkit/spvpeer/internal/version.BuildMetadata=foo"'
	// if needed.  Characters outside semanticBuildAlphabet are dropped.
	BuildMetadata = ""
)

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (http://semver.org/).
func String() string {
	version := UserAgentVersion()

	if preRelease := normalize(PreRelease, semanticAlphabet); preRelease != "" {
		version += "-" + preRelease
	}
	if build := normalize(BuildMetadata, semanticBuildAlphabet); build != "" {
		version += "+" + build
	}
	return version
}

// UserAgentVersion returns the version advertised in the user agent.  It
// leaves out the pre-release and build parts since the user agent uses its
// own separators.
func UserAgentVersion() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}

// normalize returns str stripped of all characters not in alphabet.
func normalize(str, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}
		return -1
	}, str)
}
