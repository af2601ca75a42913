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

package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NVIDIA/addon-container/pkg/addon"
)

// Factory creates a fresh module for id. It is called once per load.
type Factory func(id addon.ID) (Module, error)

// Global registry for in-process addon factories.
// Addons register themselves via init() functions.
var (
	globalFactories = make(map[string]Factory)
	globalMu        sync.RWMutex
)

// Register registers a factory globally under key, which is either an addon
// name (any version) or "name:version" coordinates.
// Returns an error if the key is already registered.
func Register(key string, factory Factory) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if _, exists := globalFactories[key]; exists {
		return fmt.Errorf("addon factory %s already registered", key)
	}
	globalFactories[key] = factory
	return nil
}

// MustRegister is Register for init() functions; it panics on error.
func MustRegister(key string, factory Factory) {
	if err := Register(key, factory); err != nil {
		panic(err)
	}
}

// GlobalKeys returns all globally registered factory keys, sorted.
func GlobalKeys() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()

	keys := make([]string, 0, len(globalFactories))
	for k := range globalFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FactoryLoader loads in-process addons from registered factories.
type FactoryLoader struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewFactoryLoader creates an empty FactoryLoader.
func NewFactoryLoader() *FactoryLoader {
	return &FactoryLoader{
		factories: make(map[string]Factory),
	}
}

// NewFromGlobal creates a FactoryLoader holding every globally registered factory.
func NewFromGlobal() *FactoryLoader {
	globalMu.RLock()
	defer globalMu.RUnlock()

	l := NewFactoryLoader()
	for k, f := range globalFactories {
		l.factories[k] = f
	}
	return l
}

// Register adds or replaces a factory in this loader.
func (l *FactoryLoader) Register(key string, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[key] = factory
}

// Unregister removes a factory from this loader.
func (l *FactoryLoader) Unregister(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.factories[key]; !ok {
		return fmt.Errorf("addon factory %s not registered", key)
	}
	delete(l.factories, key)
	return nil
}

// Count returns the number of registered factories.
func (l *FactoryLoader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.factories)
}

// Load implements Loader. Exact coordinates win over a name-only factory.
func (l *FactoryLoader) Load(_ context.Context, id addon.ID) (Module, error) {
	l.mu.RLock()
	f, ok := l.factories[id.Coordinates()]
	if !ok {
		f, ok = l.factories[id.Name]
	}
	l.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no factory for %s", ErrUnknownAddon, id.Coordinates())
	}

	m, err := f(id)
	if err != nil {
		return nil, fmt.Errorf("factory for %s failed: %w", id.Coordinates(), err)
	}
	if m == nil {
		return nil, fmt.Errorf("factory for %s returned no module", id.Coordinates())
	}
	return m, nil
}
