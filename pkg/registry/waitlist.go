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
	"github.com/NVIDIA/addon-container/pkg/addon"
)

// Waitlist is the live view of a registry's waitlist.
type Waitlist struct {
	r *Registry
}

// Put overwrites the missing set of id.
func (w *Waitlist) Put(id addon.ID, missing []addon.ID) {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()

	set := make(map[addon.ID]struct{}, len(missing))
	for _, m := range missing {
		set[m] = struct{}{}
	}
	if len(set) == 0 {
		delete(w.r.waitlist, id)
		return
	}
	w.r.waitlist[id] = set
}

// Missing returns the missing dependencies of id, sorted.
func (w *Waitlist) Missing(id addon.ID) []addon.ID {
	w.r.mu.RLock()
	defer w.r.mu.RUnlock()
	return sortedIDs(w.r.waitlist[id])
}

// Contains reports whether id is a waitlist key.
func (w *Waitlist) Contains(id addon.ID) bool {
	w.r.mu.RLock()
	defer w.r.mu.RUnlock()
	_, ok := w.r.waitlist[id]
	return ok
}

// Keys returns every waiting addon, sorted.
func (w *Waitlist) Keys() []addon.ID {
	w.r.mu.RLock()
	defer w.r.mu.RUnlock()

	set := make(map[addon.ID]struct{}, len(w.r.waitlist))
	for id := range w.r.waitlist {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

// Dependents returns the waiting addons whose missing set contains id.
func (w *Waitlist) Dependents(id addon.ID) []addon.ID {
	w.r.mu.RLock()
	defer w.r.mu.RUnlock()

	set := make(map[addon.ID]struct{})
	for waiting, missing := range w.r.waitlist {
		if _, ok := missing[id]; ok {
			set[waiting] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// Len returns the number of waiting addons.
func (w *Waitlist) Len() int {
	w.r.mu.RLock()
	defer w.r.mu.RUnlock()
	return len(w.r.waitlist)
}

// Release removes loaded from every missing set. Addons whose set becomes
// empty are removed from the waitlist, set to STOPPED and returned.
func (w *Waitlist) Release(loaded addon.ID) []addon.ID {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()

	var ready []addon.ID
	for waiting, missing := range w.r.waitlist {
		if _, ok := missing[loaded]; !ok {
			continue
		}
		delete(missing, loaded)
		if len(missing) == 0 {
			delete(w.r.waitlist, waiting)
			if a, ok := w.r.addons[waiting]; ok {
				a.SetStatus(addon.StatusStopped)
			}
			ready = append(ready, waiting)
		}
	}
	set := make(map[addon.ID]struct{}, len(ready))
	for _, id := range ready {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

// Delete removes id from the waitlist.
func (w *Waitlist) Delete(id addon.ID) {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	delete(w.r.waitlist, id)
}
