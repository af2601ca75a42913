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
	"errors"

	"github.com/NVIDIA/addon-container/pkg/addon"
)

// ErrUnknownAddon is returned by a loader that has no way to load the
// requested id. Chain uses it to fall through to the next loader.
var ErrUnknownAddon = errors.New("unknown addon")

// Module is the loaded runtime representation of an addon. It is owned by
// exactly one registry entry and is closed before a replacement is bound to
// the same id.
type Module interface {
	// Run executes the addon until it completes or ctx is cancelled. A
	// cancelled ctx is the shutdown signal; Run must return in bounded time
	// after it.
	Run(ctx context.Context) error

	// Close releases everything Load acquired. It is called exactly once,
	// after Run has returned or when the module is discarded unstarted.
	Close() error
}

// Starter is implemented by modules with a distinct start step. The addon
// counts as STARTING until Start returns, which is what the startup batch
// size bounds. Modules without it are STARTED as soon as their worker runs.
type Starter interface {
	Start(ctx context.Context) error
}

// Loader produces modules.
type Loader interface {
	Load(ctx context.Context, id addon.ID) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id addon.ID) (Module, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, id addon.ID) (Module, error) {
	return f(ctx, id)
}

// RunFunc adapts a function to a Module with nothing to release.
type RunFunc func(ctx context.Context) error

// Run implements Module.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Close implements Module.
func (f RunFunc) Close() error {
	return nil
}

// Service returns a module that blocks until shutdown, for addons whose work
// happens entirely in a start hook or in goroutines they own.
func Service() Module {
	return RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}

// Chain tries each loader in order. A loader returning ErrUnknownAddon is
// skipped; any other error stops the chain.
type Chain []Loader

// Load implements Loader.
func (c Chain) Load(ctx context.Context, id addon.ID) (Module, error) {
	for _, l := range c {
		m, err := l.Load(ctx, id)
		if errors.Is(err, ErrUnknownAddon) {
			continue
		}
		return m, err
	}
	return nil, ErrUnknownAddon
}
