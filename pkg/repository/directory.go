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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/loader"
	"github.com/NVIDIA/addon-container/pkg/serializer"
)

// Option configures a Directory.
type Option func(*Directory)

// WithRuntimeAPIVersion overrides the runtime API version recorded in the
// manifest.
func WithRuntimeAPIVersion(v string) Option {
	return func(d *Directory) {
		d.runtimeOverride = v
	}
}

// Directory is a Repository backed by a directory on disk. Every call
// re-reads the files it needs, so external edits are seen on the next poll.
type Directory struct {
	root            string
	runtimeOverride string

	// serializes manifest rewrites
	mu sync.Mutex
}

// NewDirectory creates a repository rooted at root. The directory does not
// need to exist; a missing root is an empty repository.
func NewDirectory(root string, opts ...Option) *Directory {
	d := &Directory{root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the repository root.
func (d *Directory) Root() string {
	return d.root
}

// AddonDir returns the directory holding id's contents.
func (d *Directory) AddonDir(id addon.ID) string {
	return filepath.Join(d.root, id.Name, id.Version)
}

// Manifest reads installed.yaml. A missing file yields an empty manifest.
func (d *Directory) Manifest() (*Manifest, error) {
	path := filepath.Join(d.root, ManifestFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	m, err := serializer.FromFile[Manifest](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository manifest: %w", err)
	}
	return m, nil
}

// ListEnabled implements Repository.
func (d *Directory) ListEnabled() ([]addon.ID, error) {
	m, err := d.Manifest()
	if err != nil {
		return nil, err
	}
	return m.ids(true), nil
}

// ListEnabledCompatibleWithVersion implements Repository.
func (d *Directory) ListEnabledCompatibleWithVersion(runtimeAPIVersion string) ([]addon.ID, error) {
	enabled, err := d.ListEnabled()
	if err != nil {
		return nil, err
	}
	return filterCompatible(enabled, runtimeAPIVersion), nil
}

// IsDeployed implements Repository. An addon is deployed when its
// descriptor exists.
func (d *Directory) IsDeployed(id addon.ID) bool {
	_, err := d.descriptorPath(id)
	return err == nil
}

// IsEnabled implements Repository.
func (d *Directory) IsEnabled(id addon.ID) bool {
	m, err := d.Manifest()
	if err != nil {
		slog.Warn("repository manifest unreadable", "root", d.root, "error", err)
		return false
	}
	i := m.find(id)
	return i >= 0 && m.Addons[i].Enabled
}

// Dependencies implements Repository.
func (d *Directory) Dependencies(id addon.ID) ([]addon.Dependency, error) {
	desc, err := d.Descriptor(id)
	if err != nil {
		return nil, err
	}
	edges, err := desc.Edges()
	if err != nil {
		return nil, fmt.Errorf("addon %s: %w", id.Coordinates(), err)
	}
	m, err := d.Manifest()
	if err != nil {
		return nil, err
	}
	return canonicalize(edges, m.ids(false)), nil
}

// RuntimeAPIVersion implements Repository.
func (d *Directory) RuntimeAPIVersion() string {
	if d.runtimeOverride != "" {
		return d.runtimeOverride
	}
	m, err := d.Manifest()
	if err != nil {
		slog.Warn("repository manifest unreadable", "root", d.root, "error", err)
		return ""
	}
	return m.RuntimeAPIVersion
}

// Descriptor reads id's descriptor, preferring addon.yaml over addon.hcl.
func (d *Directory) Descriptor(id addon.ID) (*Descriptor, error) {
	path, err := d.descriptorPath(id)
	if err != nil {
		return nil, err
	}
	if filepath.Base(path) == DescriptorHCL {
		return readDescriptorHCL(path)
	}
	return readDescriptorYAML(path)
}

// Command implements loader.CommandSource. A descriptor without a command
// yields nil.
func (d *Directory) Command(id addon.ID) (*loader.Command, error) {
	desc, err := d.Descriptor(id)
	if err != nil {
		return nil, err
	}
	if desc.Command == "" {
		return nil, nil
	}
	return &loader.Command{
		Path: desc.Command,
		Args: desc.Args,
		Env:  desc.Env,
		Dir:  d.AddonDir(id),
	}, nil
}

func (d *Directory) descriptorPath(id addon.ID) (string, error) {
	dir := d.AddonDir(id)
	for _, name := range []string{DescriptorYAML, DescriptorHCL} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("addon %s is not deployed in %s", id.Coordinates(), d.root)
}

// Enable implements Mutable. An addon missing from the manifest is added.
func (d *Directory) Enable(id addon.ID) error {
	return d.update(func(m *Manifest) error {
		if i := m.find(id); i >= 0 {
			m.Addons[i].Enabled = true
			if id.APIVersion != "" {
				m.Addons[i].APIVersion = id.APIVersion
			}
			return nil
		}
		m.Addons = append(m.Addons, InstalledAddon{
			Name:       id.Name,
			Version:    id.Version,
			APIVersion: id.APIVersion,
			Enabled:    true,
		})
		return nil
	})
}

// Disable implements Mutable.
func (d *Directory) Disable(id addon.ID) error {
	return d.update(func(m *Manifest) error {
		i := m.find(id)
		if i < 0 {
			return fmt.Errorf("addon %s is not installed", id.Coordinates())
		}
		m.Addons[i].Enabled = false
		return nil
	})
}

// Deploy writes id's YAML descriptor, creating its directory.
func (d *Directory) Deploy(id addon.ID, desc *Descriptor) error {
	dir := d.AddonDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := serializer.Marshal(serializer.FormatYAML, desc)
	if err != nil {
		return err
	}
	return serializer.WriteFileAtomic(filepath.Join(dir, DescriptorYAML), data, 0o644)
}

// SetRuntimeAPIVersion records v in the manifest.
func (d *Directory) SetRuntimeAPIVersion(v string) error {
	return d.update(func(m *Manifest) error {
		m.RuntimeAPIVersion = v
		return nil
	})
}

func (d *Directory) update(fn func(*Manifest) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.Manifest()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("failed to create repository root: %w", err)
	}
	data, err := serializer.Marshal(serializer.FormatYAML, m)
	if err != nil {
		return err
	}
	return serializer.WriteFileAtomic(filepath.Join(d.root, ManifestFile), data, 0o644)
}

var (
	_ Mutable              = (*Directory)(nil)
	_ Mutable              = (*Memory)(nil)
	_ loader.CommandSource = (*Directory)(nil)
)
