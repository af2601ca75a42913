// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version parses and compares the API versions addons declare
// against the runtime API version of the container.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
	ErrNegativeComponent = errors.New("version component cannot be negative")
)

// Version is a Major[.Minor[.Patch]] API version. Precision records how many
// components were given; missing components compare as equal.
type Version struct {
	Major int `json:"major" yaml:"major"`
	Minor int `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch int `json:"patch,omitempty" yaml:"patch,omitempty"`

	Precision int `json:"precision" yaml:"precision"`

	// Extras keeps build or pre-release suffixes such as "-SNAPSHOT" or "+build.7".
	Extras string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// NewVersion returns a full-precision version.
func NewVersion(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Precision: 3}
}

// String renders the version at its precision, without extras.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return strconv.Itoa(v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// Parse parses "1", "1.2", "1.2.3" with an optional "v" prefix and optional
// "-suffix" or "+metadata" extras (e.g. "2.0.0-SNAPSHOT").
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	s = strings.TrimPrefix(s, "v")

	var v Version
	main := s
	for i := 1; i < len(s); i++ {
		if (s[i] == '-' || s[i] == '+') && s[i-1] >= '0' && s[i-1] <= '9' {
			main, v.Extras = s[:i], s[i:]
			break
		}
	}

	parts := strings.Split(main, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}
	for i, part := range parts {
		if part == "" {
			return Version{}, fmt.Errorf("%w: empty component", ErrNonNumeric)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("%w: %d", ErrNegativeComponent, n)
		}
		switch i {
		case 0:
			v.Major = n
		case 1:
			v.Minor = n
		case 2:
			v.Patch = n
		}
	}
	v.Precision = len(parts)
	return v, nil
}

// MustParse is Parse for hardcoded strings; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("version.MustParse: %v", err))
	}
	return v
}

// Compare returns -1, 0 or 1, comparing only as many components as the less
// precise of the two versions carries.
func (v Version) Compare(other Version) int {
	precision := min(v.Precision, other.Precision)

	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{other.Major, other.Minor, other.Patch}
	for i := 0; i < precision; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// IsValid reports whether all components are non-negative and precision is 1..3.
func (v Version) IsValid() bool {
	return v.Major >= 0 && v.Minor >= 0 && v.Patch >= 0 && v.Precision >= 1 && v.Precision <= 3
}

// CompatibleWith reports whether an addon built against API version v can
// run on runtime. The major versions must match and the addon may not
// require a newer minor/patch than the runtime provides.
func (v Version) CompatibleWith(runtime Version) bool {
	if v.Major != runtime.Major {
		return false
	}
	return v.Compare(runtime) <= 0
}

// Compatible is the string form of CompatibleWith. An empty runtime version
// means the runtime could not be detected and everything is accepted; an
// empty declared version is treated as compatible. Unparseable versions are
// incompatible.
func Compatible(runtime, declared string) bool {
	if runtime == "" || declared == "" {
		return true
	}
	rv, err := Parse(runtime)
	if err != nil {
		return false
	}
	dv, err := Parse(declared)
	if err != nil {
		return false
	}
	return dv.CompatibleWith(rv)
}
