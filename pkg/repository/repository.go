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

package repository

import (
	"sort"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/version"
)

// Repository is the contract the container polls every tick.
type Repository interface {
	// ListEnabled returns every addon marked enabled.
	ListEnabled() ([]addon.ID, error)
	// ListEnabledCompatibleWithVersion returns the enabled addons whose
	// declared API version is compatible with runtimeAPIVersion.
	ListEnabledCompatibleWithVersion(runtimeAPIVersion string) ([]addon.ID, error)
	// IsDeployed reports whether the addon's contents are present.
	IsDeployed(id addon.ID) bool
	// IsEnabled reports whether the addon is marked enabled.
	IsEnabled(id addon.ID) bool
	// Dependencies returns the addon's declared dependency edges.
	Dependencies(id addon.ID) ([]addon.Dependency, error)
	// RuntimeAPIVersion returns the runtime API version, or "" if unknown.
	RuntimeAPIVersion() string
}

// Mutable is implemented by repositories that can be edited in place.
type Mutable interface {
	Repository
	Enable(id addon.ID) error
	Disable(id addon.ID) error
}

// Incompatible returns the addons in enabled that are not in compatible.
func Incompatible(enabled, compatible []addon.ID) []addon.ID {
	keep := make(map[addon.ID]struct{}, len(compatible))
	for _, id := range compatible {
		keep[id] = struct{}{}
	}
	var out []addon.ID
	for _, id := range enabled {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func filterCompatible(ids []addon.ID, runtimeAPIVersion string) []addon.ID {
	out := make([]addon.ID, 0, len(ids))
	for _, id := range ids {
		if version.Compatible(runtimeAPIVersion, id.APIVersion) {
			out = append(out, id)
		}
	}
	return out
}

// canonicalize replaces each dependency id with the installed id sharing
// its coordinates, when there is one.
func canonicalize(deps []addon.Dependency, installed []addon.ID) []addon.Dependency {
	byCoords := make(map[string]addon.ID, len(installed))
	for _, id := range installed {
		byCoords[id.Coordinates()] = id
	}
	out := make([]addon.Dependency, len(deps))
	for i, d := range deps {
		if id, ok := byCoords[d.ID.Coordinates()]; ok && (d.ID.APIVersion == "" || d.ID.APIVersion == id.APIVersion) {
			d.ID = id
		}
		out[i] = d
	}
	return out
}

func sortIDs(ids []addon.ID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].Version < ids[j].Version
	})
}
