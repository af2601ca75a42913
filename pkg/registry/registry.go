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

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/NVIDIA/addon-container/pkg/addon"
)

// Registry manages registered addons and the waitlist with thread-safe operations.
type Registry struct {
	addons   map[addon.ID]*Addon
	waitlist map[addon.ID]map[addon.ID]struct{}
	mu       sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		addons:   make(map[addon.ID]*Addon),
		waitlist: make(map[addon.ID]map[addon.ID]struct{}),
	}
}

// Register inserts a if no addon with the same id is registered and returns
// the entry that is registered afterwards.
func (r *Registry) Register(a *Addon) *Addon {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.addons[a.ID()]; ok {
		return existing
	}
	r.addons[a.ID()] = a
	return a
}

// GetOrRegister returns the entry for id, registering a STOPPED one if absent.
// The bool reports whether a new entry was created.
func (r *Registry) GetOrRegister(id addon.ID) (*Addon, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.addons[id]; ok {
		return existing, false
	}
	a := NewAddon(id)
	r.addons[id] = a
	return a, true
}

// Get retrieves an addon by id.
func (r *Registry) Get(id addon.ID) (*Addon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.addons[id]
	return a, ok
}

// IsRegistered reports whether id has an entry.
func (r *Registry) IsRegistered(id addon.ID) bool {
	_, ok := r.Get(id)
	return ok
}

// IsWaiting reports whether id is a waitlist key with missing dependencies.
func (r *Registry) IsWaiting(id addon.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.waitlist[id]) > 0
}

// Remove deregisters id and drops its own waitlist entry. It is refused
// while the addon is STARTING or STARTED or while a module is still bound.
// Missing sets of other addons that name id are left alone; they are keyed
// by id value and still match a later entry for the same addon.
func (r *Registry) Remove(id addon.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addons[id]
	if !ok {
		return fmt.Errorf("addon %s not registered", id.Coordinates())
	}
	if s := a.Status(); s == addon.StatusStarting || s == addon.StatusStarted {
		return fmt.Errorf("addon %s is %s", id.Coordinates(), s)
	}
	if a.HasModule() {
		return fmt.Errorf("addon %s still has a module bound", id.Coordinates())
	}

	delete(r.addons, id)
	delete(r.waitlist, id)
	return nil
}

// List returns all registered addons sorted by coordinates.
func (r *Registry) List() []*Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Addon, 0, len(r.addons))
	for _, a := range r.addons {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return lessID(list[i].ID(), list[j].ID())
	})
	return list
}

// Services returns the addons currently STARTED.
func (r *Registry) Services() []*Addon {
	var out []*Addon
	for _, a := range r.List() {
		if a.Status() == addon.StatusStarted {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of registered addons.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.addons)
}

// CountByStatus returns how many addons are in each status. Every status is
// present in the result, possibly with zero.
func (r *Registry) CountByStatus() map[addon.Status]int {
	counts := make(map[addon.Status]int, len(addon.Statuses))
	for _, s := range addon.Statuses {
		counts[s] = 0
	}
	for _, a := range r.List() {
		counts[a.Status()]++
	}
	return counts
}

// Entry is a point-in-time view of one registered addon.
type Entry struct {
	ID      addon.ID     `json:"id" yaml:"id"`
	Status  addon.Status `json:"status" yaml:"status"`
	Missing []addon.ID   `json:"missing,omitempty" yaml:"missing,omitempty"`
	Error   string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Snapshot returns a consistent copy of every entry.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.addons))
	for id, a := range r.addons {
		e := Entry{ID: id, Status: a.Status(), Missing: sortedIDs(r.waitlist[id])}
		if err := a.Err(); err != nil {
			e.Error = err.Error()
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// MutableWaitlist returns the live waitlist. It shares the registry's lock.
func (r *Registry) MutableWaitlist() *Waitlist {
	return &Waitlist{r: r}
}

func lessID(a, b addon.ID) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Version != b.Version {
		return a.Version < b.Version
	}
	return a.APIVersion < b.APIVersion
}

func sortedIDs(set map[addon.ID]struct{}) []addon.ID {
	if len(set) == 0 {
		return nil
	}
	out := make([]addon.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out
}
