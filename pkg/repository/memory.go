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
	"sync"

	"github.com/NVIDIA/addon-container/pkg/addon"
)

type memoryEntry struct {
	id       addon.ID
	deployed bool
	enabled  bool
	deps     []addon.Dependency
}

// Memory is an in-process Repository. Entries are keyed by coordinates.
type Memory struct {
	mu      sync.RWMutex
	runtime string
	entries map[string]*memoryEntry
}

// NewMemory creates an empty repository reporting runtimeAPIVersion.
func NewMemory(runtimeAPIVersion string) *Memory {
	return &Memory{
		runtime: runtimeAPIVersion,
		entries: make(map[string]*memoryEntry),
	}
}

// Install deploys and enables id with the given dependencies.
func (m *Memory) Install(id addon.ID, deps ...addon.Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id.Coordinates()] = &memoryEntry{id: id, deployed: true, enabled: true, deps: deps}
}

// Deploy makes id's contents present without enabling it.
func (m *Memory) Deploy(id addon.ID, deps ...addon.Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id.Coordinates()]; ok {
		e.id = id
		e.deployed = true
		e.deps = deps
		return
	}
	m.entries[id.Coordinates()] = &memoryEntry{id: id, deployed: true, deps: deps}
}

// Undeploy removes id's contents. The enabled flag is kept.
func (m *Memory) Undeploy(id addon.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id.Coordinates()]; ok {
		e.deployed = false
	}
}

// Remove forgets id entirely.
func (m *Memory) Remove(id addon.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id.Coordinates())
}

// Enable implements Mutable. An unknown id is added as enabled but not deployed.
func (m *Memory) Enable(id addon.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id.Coordinates()]; ok {
		e.enabled = true
		return nil
	}
	m.entries[id.Coordinates()] = &memoryEntry{id: id, enabled: true}
	return nil
}

// Disable implements Mutable.
func (m *Memory) Disable(id addon.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id.Coordinates()]
	if !ok {
		return fmt.Errorf("addon %s is not installed", id.Coordinates())
	}
	e.enabled = false
	return nil
}

// SetDependencies replaces id's dependency edges.
func (m *Memory) SetDependencies(id addon.ID, deps ...addon.Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id.Coordinates()]; ok {
		e.deps = deps
	}
}

// SetRuntimeAPIVersion changes the reported runtime API version.
func (m *Memory) SetRuntimeAPIVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runtime = v
}

// ListEnabled implements Repository.
func (m *Memory) ListEnabled() ([]addon.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabledLocked(), nil
}

func (m *Memory) enabledLocked() []addon.ID {
	ids := make([]addon.ID, 0, len(m.entries))
	for _, e := range m.entries {
		if e.enabled {
			ids = append(ids, e.id)
		}
	}
	sortIDs(ids)
	return ids
}

// ListEnabledCompatibleWithVersion implements Repository.
func (m *Memory) ListEnabledCompatibleWithVersion(runtimeAPIVersion string) ([]addon.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterCompatible(m.enabledLocked(), runtimeAPIVersion), nil
}

// IsDeployed implements Repository.
func (m *Memory) IsDeployed(id addon.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id.Coordinates()]
	return ok && e.deployed
}

// IsEnabled implements Repository.
func (m *Memory) IsEnabled(id addon.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id.Coordinates()]
	return ok && e.enabled
}

// Dependencies implements Repository.
func (m *Memory) Dependencies(id addon.ID) ([]addon.Dependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id.Coordinates()]
	if !ok || !e.deployed {
		return nil, fmt.Errorf("addon %s is not deployed", id.Coordinates())
	}
	installed := make([]addon.ID, 0, len(m.entries))
	for _, other := range m.entries {
		installed = append(installed, other.id)
	}
	return canonicalize(e.deps, installed), nil
}

// RuntimeAPIVersion implements Repository.
func (m *Memory) RuntimeAPIVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtime
}
