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
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/serializer"
)

const (
	// ManifestFile lists installed addons at the repository root.
	ManifestFile = "installed.yaml"
	// DescriptorYAML is the YAML addon descriptor file name.
	DescriptorYAML = "addon.yaml"
	// DescriptorHCL is the HCL addon descriptor file name.
	DescriptorHCL = "addon.hcl"
)

// Manifest is the content of installed.yaml.
type Manifest struct {
	RuntimeAPIVersion string           `yaml:"runtimeAPIVersion,omitempty"`
	Addons            []InstalledAddon `yaml:"addons"`
}

// InstalledAddon is one entry of the manifest.
type InstalledAddon struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	APIVersion string `yaml:"apiVersion,omitempty"`
	Enabled    bool   `yaml:"enabled"`
}

// ID returns the entry's addon id.
func (a InstalledAddon) ID() addon.ID {
	return addon.NewID(a.Name, a.Version).WithAPIVersion(a.APIVersion)
}

func (m *Manifest) ids(enabledOnly bool) []addon.ID {
	ids := make([]addon.ID, 0, len(m.Addons))
	for _, a := range m.Addons {
		if enabledOnly && !a.Enabled {
			continue
		}
		ids = append(ids, a.ID())
	}
	sortIDs(ids)
	return ids
}

func (m *Manifest) find(id addon.ID) int {
	for i, a := range m.Addons {
		if a.Name == id.Name && a.Version == id.Version {
			return i
		}
	}
	return -1
}

// Descriptor is the content of addon.yaml or addon.hcl.
//
// HCL form:
//
//	command = "bin/server"
//	args    = ["--port", "8081"]
//
//	dependency "core" {
//	  version  = "1.0.0"
//	  optional = false
//	}
type Descriptor struct {
	Command      string            `yaml:"command,omitempty" hcl:"command,optional"`
	Args         []string          `yaml:"args,omitempty" hcl:"args,optional"`
	Env          map[string]string `yaml:"env,omitempty" hcl:"env,optional"`
	Dependencies []DependencySpec  `yaml:"dependencies,omitempty" hcl:"dependency,block"`
}

// DependencySpec declares one dependency edge.
type DependencySpec struct {
	Name       string `yaml:"name" hcl:"name,label"`
	Version    string `yaml:"version" hcl:"version"`
	APIVersion string `yaml:"apiVersion,omitempty" hcl:"api_version,optional"`
	Optional   bool   `yaml:"optional,omitempty" hcl:"optional,optional"`
}

// Edges converts the declared dependencies into dependency edges.
func (d *Descriptor) Edges() ([]addon.Dependency, error) {
	edges := make([]addon.Dependency, 0, len(d.Dependencies))
	for _, s := range d.Dependencies {
		if s.Name == "" || s.Version == "" {
			return nil, fmt.Errorf("dependency %q: name and version are required", s.Name)
		}
		edges = append(edges, addon.Dependency{
			ID:       addon.NewID(s.Name, s.Version).WithAPIVersion(s.APIVersion),
			Optional: s.Optional,
		})
	}
	return edges, nil
}

// EnvList returns Env as sorted KEY=VALUE pairs.
func (d *Descriptor) EnvList() []string {
	out := make([]string, 0, len(d.Env))
	for k, v := range d.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func readDescriptorYAML(path string) (*Descriptor, error) {
	return serializer.FromFile[Descriptor](path)
}

func readDescriptorHCL(path string) (*Descriptor, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var desc Descriptor
	if diags := gohcl.DecodeBody(file.Body, nil, &desc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return &desc, nil
}
