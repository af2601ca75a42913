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

package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/loader"
	"github.com/NVIDIA/addon-container/pkg/registry"
	"github.com/NVIDIA/addon-container/pkg/repository"
)

// Resolver resolves the repository's desired set against a registry.
type Resolver struct {
	repo   repository.Repository
	reg    *registry.Registry
	loader loader.Loader

	// Deferred reports addons that may not be loaded this pass, typically
	// because a previous module for the same id has not been released yet.
	Deferred func(addon.ID) bool

	Logger *slog.Logger
}

// New creates a Resolver.
func New(repo repository.Repository, reg *registry.Registry, l loader.Loader) *Resolver {
	return &Resolver{
		repo:   repo,
		reg:    reg,
		loader: l,
		Logger: slog.Default(),
	}
}

// Resolution is the ordered set of addons loadable this pass. Dependencies
// come before their dependents.
type Resolution struct {
	Addons []*registry.Addon

	// LoadFailures lists addons whose load failed during the pass.
	LoadFailures []addon.ID

	index map[addon.ID]struct{}
}

func newResolution() *Resolution {
	return &Resolution{index: make(map[addon.ID]struct{})}
}

func (r *Resolution) add(a *registry.Addon) {
	if _, ok := r.index[a.ID()]; ok {
		return
	}
	r.index[a.ID()] = struct{}{}
	r.Addons = append(r.Addons, a)
}

// Contains reports whether id is in the resolution.
func (r *Resolution) Contains(id addon.ID) bool {
	_, ok := r.index[id]
	return ok
}

// IDs returns the resolved ids in resolution order.
func (r *Resolution) IDs() []addon.ID {
	ids := make([]addon.ID, len(r.Addons))
	for i, a := range r.Addons {
		ids[i] = a.ID()
	}
	return ids
}

// Len returns the number of resolved addons.
func (r *Resolution) Len() int {
	return len(r.Addons)
}

// Resolve runs one pass over enabledCompatible. Only ctx cancellation stops
// a pass early; the partial resolution is returned.
func (r *Resolver) Resolve(ctx context.Context, enabledCompatible []addon.ID) *Resolution {
	p := &pass{
		Resolver:   r,
		ctx:        ctx,
		res:        newResolution(),
		waitlist:   r.reg.MutableWaitlist(),
		compatible: make(map[addon.ID]struct{}, len(enabledCompatible)),
		done:       make(map[addon.ID]struct{}),
		inProgress: make(map[addon.ID]struct{}),
	}
	for _, id := range enabledCompatible {
		p.compatible[id] = struct{}{}
	}
	for _, id := range enabledCompatible {
		if ctx.Err() != nil {
			break
		}
		p.resolve(id)
	}
	return p.res
}

type pass struct {
	*Resolver

	ctx        context.Context
	res        *Resolution
	waitlist   *registry.Waitlist
	compatible map[addon.ID]struct{}
	done       map[addon.ID]struct{}
	inProgress map[addon.ID]struct{}
}

func (p *pass) resolve(id addon.ID) *registry.Addon {
	a, created := p.reg.GetOrRegister(id)
	if created {
		p.Logger.Debug("addon registered", "addon", id.Coordinates())
	}

	if _, ok := p.inProgress[id]; ok {
		p.fail(a, apperrors.NewWithContext(apperrors.ErrCodeMissingDependency, "dependency cycle", map[string]any{
			"addon": id.Coordinates(),
		}))
		return a
	}
	if _, ok := p.done[id]; ok {
		return a
	}
	p.done[id] = struct{}{}

	if !p.repo.IsDeployed(id) || !p.repo.IsEnabled(id) {
		// a running addon is left to the stop phase
		if !a.HasModule() {
			p.fail(a, apperrors.NewWithContext(apperrors.ErrCodeNotFound, "addon is not deployed and enabled", map[string]any{
				"addon": id.Coordinates(),
			}))
		}
		return a
	}
	bound := a.HasModule()
	if !bound {
		if a.Parked() {
			return a
		}
		if p.Deferred != nil && p.Deferred(id) {
			p.Logger.Debug("addon load deferred until previous module is released", "addon", id.Coordinates())
			a.SetStatus(addon.StatusFailed)
			return a
		}
	}

	deps, err := p.repo.Dependencies(id)
	if err != nil {
		if bound {
			p.Logger.Warn("failed to read dependencies of running addon", "addon", id.Coordinates(), "error", err)
			p.res.add(a)
			return a
		}
		p.park(a, apperrors.Wrap(apperrors.ErrCodeLoadFailure, "failed to read dependencies", err))
		return a
	}

	p.inProgress[id] = struct{}{}
	missing := p.resolveDependencies(id, deps)
	delete(p.inProgress, id)

	if len(missing) > 0 {
		// a running addon is left out of the resolution and stopped
		p.waitlist.Put(id, missing)
		names := coordinates(missing)
		p.fail(a, apperrors.NewWithContext(apperrors.ErrCodeMissingDependency,
			"required dependencies unavailable: "+strings.Join(names, ", "),
			map[string]any{"addon": id.Coordinates(), "missing": names}))
		return a
	}
	p.waitlist.Delete(id)

	if bound {
		// loaded earlier and still owned by its worker
		p.res.add(a)
		return a
	}
	p.load(a)
	return a
}

// resolveDependencies returns the required dependencies of id that cannot be
// satisfied this pass.
func (p *pass) resolveDependencies(id addon.ID, deps []addon.Dependency) []addon.ID {
	var missing []addon.ID
	for _, dep := range deps {
		available := false

		switch {
		case !p.repo.IsDeployed(dep.ID) || !p.repo.IsEnabled(dep.ID):
			if _, created := p.reg.GetOrRegister(dep.ID); created {
				p.Logger.Debug("registered stub for unavailable dependency",
					"addon", id.Coordinates(), "dependency", dep.ID.Coordinates())
			}
		case !p.isCompatible(dep.ID):
			d, _ := p.reg.GetOrRegister(dep.ID)
			if !d.HasModule() {
				p.fail(d, apperrors.NewWithContext(apperrors.ErrCodeIncompatibleVersion, "dependency API version is not supported", map[string]any{
					"addon":      dep.ID.Coordinates(),
					"apiVersion": dep.ID.APIVersion,
				}))
			}
			available = d.HasModule()
		default:
			p.resolve(dep.ID)
			available = p.res.Contains(dep.ID)
		}

		if available {
			continue
		}
		if dep.Optional {
			p.Logger.Debug("optional dependency unavailable",
				"addon", id.Coordinates(), "dependency", dep.ID.Coordinates())
			continue
		}
		missing = append(missing, dep.ID)
	}
	return missing
}

func (p *pass) load(a *registry.Addon) {
	id := a.ID()

	m, err := p.loader.Load(p.ctx, id)
	if err == nil && m == nil {
		err = loader.ErrUnknownAddon
	}
	if err == nil {
		if bindErr := a.BindModule(m); bindErr != nil {
			if closeErr := m.Close(); closeErr != nil {
				p.Logger.Warn("failed to close unbound module", "addon", id.Coordinates(), "error", closeErr)
			}
			err = bindErr
		}
	}
	if err != nil {
		p.res.LoadFailures = append(p.res.LoadFailures, id)
		p.park(a, apperrors.WrapWithContext(apperrors.ErrCodeLoadFailure, "failed to load addon", err, map[string]any{
			"addon": id.Coordinates(),
		}))
		return
	}

	a.SetErr(nil)
	p.res.add(a)
	p.Logger.Debug("addon loaded", "addon", id.Coordinates())

	for _, ready := range p.waitlist.Release(id) {
		// eligible again if the pass reaches it later
		delete(p.done, ready)
		p.Logger.Info("addon dependencies satisfied", "addon", ready.Coordinates(), "dependency", id.Coordinates())
	}
}

func (p *pass) isCompatible(id addon.ID) bool {
	_, ok := p.compatible[id]
	return ok
}

// fail sets a FAILED and logs when the status or cause changed.
func (p *pass) fail(a *registry.Addon, cause error) {
	prevErr := a.Err()
	a.SetErr(cause)
	prev := a.SetStatus(addon.StatusFailed)
	if prev == addon.StatusFailed && prevErr != nil && prevErr.Error() == cause.Error() {
		return
	}
	p.Logger.Warn("addon not loadable",
		"addon", a.ID().Coordinates(),
		"from", prev,
		"code", apperrors.CodeOf(cause),
		"error", cause)
}

func (p *pass) park(a *registry.Addon, cause error) {
	a.SetStatus(addon.StatusFailed)
	a.Park(cause)
	p.Logger.Error("addon failed to load",
		"addon", a.ID().Coordinates(),
		"code", apperrors.CodeOf(cause),
		"error", cause)
}

func coordinates(ids []addon.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Coordinates()
	}
	return out
}
