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

package addon

import (
	"fmt"
	"strings"
)

// ID uniquely identifies an addon. Equality is by value.
type ID struct {
	Name       string `json:"name" yaml:"name"`
	Version    string `json:"version" yaml:"version"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// NewID returns an ID for name and version with no declared API version.
func NewID(name, version string) ID {
	return ID{Name: name, Version: version}
}

// WithAPIVersion returns a copy of id declaring apiVersion.
func (id ID) WithAPIVersion(apiVersion string) ID {
	id.APIVersion = apiVersion
	return id
}

// Coordinates renders the id as "name:version".
func (id ID) Coordinates() string {
	return id.Name + ":" + id.Version
}

// String includes the API version when one is declared.
func (id ID) String() string {
	if id.APIVersion == "" {
		return id.Coordinates()
	}
	return fmt.Sprintf("%s (api %s)", id.Coordinates(), id.APIVersion)
}

// SameCoordinates reports whether id and other name the same addon build,
// ignoring the declared API version.
func (id ID) SameCoordinates(other ID) bool {
	return id.Name == other.Name && id.Version == other.Version
}

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseCoordinates parses "name:version". Both parts are required and the
// name may not itself contain a colon.
func ParseCoordinates(s string) (ID, error) {
	name, ver, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ID{}, fmt.Errorf("invalid addon coordinates %q: expected name:version", s)
	}
	if name == "" || ver == "" {
		return ID{}, fmt.Errorf("invalid addon coordinates %q: name and version are required", s)
	}
	if strings.Contains(ver, ":") {
		return ID{}, fmt.Errorf("invalid addon coordinates %q: too many ':' separators", s)
	}
	return NewID(name, ver), nil
}

// Dependency is a directed edge from an addon to one of its dependencies.
type Dependency struct {
	ID       ID   `json:"id" yaml:"id"`
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Required returns a required dependency edge on id.
func Required(id ID) Dependency {
	return Dependency{ID: id}
}

// Optional returns an optional dependency edge on id.
func Optional(id ID) Dependency {
	return Dependency{ID: id, Optional: true}
}

// String implements fmt.Stringer.
func (d Dependency) String() string {
	if d.Optional {
		return d.ID.Coordinates() + " (optional)"
	}
	return d.ID.Coordinates()
}
