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
	"sync"
	"time"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/loader"
)

// Addon is a registered addon. Its fields are guarded by its own lock so a
// worker can publish STARTED or FAILED without holding the registry lock.
type Addon struct {
	id addon.ID

	mu      sync.RWMutex
	status  addon.Status
	module  loader.Module
	parked  bool
	err     error
	changed time.Time
}

// NewAddon returns an unregistered, STOPPED addon.
func NewAddon(id addon.ID) *Addon {
	return &Addon{
		id:      id,
		status:  addon.StatusStopped,
		changed: time.Now(),
	}
}

// ID returns the addon's identity.
func (a *Addon) ID() addon.ID {
	return a.id
}

// Status returns the current status.
func (a *Addon) Status() addon.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// SetStatus sets the status and returns the previous one.
func (a *Addon) SetStatus(s addon.Status) addon.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.status
	if prev != s {
		a.status = s
		a.changed = time.Now()
	}
	return prev
}

// CompareAndSetStatus sets the status to next only if it currently is from.
func (a *Addon) CompareAndSetStatus(from, next addon.Status) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != from {
		return false
	}
	a.status = next
	a.changed = time.Now()
	return true
}

// Changed returns when the status last changed.
func (a *Addon) Changed() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.changed
}

// Module returns the bound module, or nil.
func (a *Addon) Module() loader.Module {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.module
}

// HasModule reports whether a module is bound.
func (a *Addon) HasModule() bool {
	return a.Module() != nil
}

// BindModule binds m. A previously bound module must be released first.
func (a *Addon) BindModule(m loader.Module) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.module != nil {
		return fmt.Errorf("addon %s already has a module bound", a.id.Coordinates())
	}
	a.module = m
	return nil
}

// UnbindModule detaches and returns the bound module. Ownership of the
// returned module passes to the caller, which must Close it.
func (a *Addon) UnbindModule() loader.Module {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.module
	a.module = nil
	return m
}

// Park marks the addon so the resolver stops loading it. Used for load
// failures, runtime failures and addons that finished on their own; the mark
// is cleared once the repository stops reporting the addon as deployed and
// enabled, so re-enabling it gives the addon a fresh attempt.
func (a *Addon) Park(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parked = true
	a.err = err
}

// Unpark clears the park mark. The recorded error is kept.
func (a *Addon) Unpark() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parked = false
}

// Parked reports whether the addon is parked.
func (a *Addon) Parked() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.parked
}

// Err returns the last failure recorded for the addon.
func (a *Addon) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// SetErr records a failure without parking.
func (a *Addon) SetErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// String implements fmt.Stringer.
func (a *Addon) String() string {
	return fmt.Sprintf("%s [%s]", a.id.Coordinates(), a.Status())
}
