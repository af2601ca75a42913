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

package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/registry"
	"github.com/NVIDIA/addon-container/pkg/repository"
	"github.com/NVIDIA/addon-container/pkg/resolver"
)

// desiredState is what the repository reported for one tick.
type desiredState struct {
	compatible []addon.ID
	live       map[addon.ID]struct{}
}

// tick runs one reconciliation pass. A returned error is fatal to the loop.
func (c *Container) tick(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Wrap(apperrors.ErrCodeSchedulerFatal, "reconciliation tick panicked", fmt.Errorf("%v", r))
		}
		reconcileDuration.Observe(time.Since(start).Seconds())
	}()

	c.reap()

	state, err := c.desired()
	if err != nil {
		// transient; the next tick polls again
		c.logger.Error("failed to read repository", "error", err)
		return nil
	}

	running := make(map[addon.ID]*worker, len(c.workers))
	for id, w := range c.workers {
		running[id] = w
	}

	desired := c.resolver.Resolve(ctx, state.compatible)
	loadFailuresTotal.Add(float64(len(desired.LoadFailures)))

	c.stopPhase(running, desired)
	c.startPhase(ctx, running, desired)
	c.collect(state)

	recordStatusCounts(c.reg)
	c.ticked.Store(true)
	c.logger.Debug("reconciled",
		"resolved", desired.Len(),
		"services", len(c.reg.Services()),
		"workers", len(c.workers),
		"draining", len(c.draining),
		"duration", time.Since(start))
	return nil
}

// reap drops workers that have exited.
func (c *Container) reap() {
	for id, w := range c.workers {
		if w.finished() {
			delete(c.workers, id)
			c.logger.Debug("worker exited", "addon", id.Coordinates(), "status", w.addon.Status())
		}
	}
	for id, w := range c.draining {
		if w.finished() {
			delete(c.draining, id)
			c.logger.Debug("stopped addon released", "addon", id.Coordinates())
		}
	}
}

func (c *Container) desired() (*desiredState, error) {
	enabled, err := c.repo.ListEnabled()
	if err != nil {
		return nil, fmt.Errorf("list enabled addons: %w", err)
	}
	runtime := c.Version()
	compatible, err := c.repo.ListEnabledCompatibleWithVersion(runtime)
	if err != nil {
		return nil, fmt.Errorf("list compatible addons: %w", err)
	}
	c.logIncompatible(repository.Incompatible(enabled, compatible), runtime)

	live := make(map[addon.ID]struct{}, len(enabled))
	for _, id := range enabled {
		if c.repo.IsDeployed(id) {
			live[id] = struct{}{}
		}
	}
	return &desiredState{compatible: compatible, live: live}, nil
}

// logIncompatible logs addons skipped for their API version whenever that
// set changes.
func (c *Container) logIncompatible(ids []addon.ID, runtime string) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	key := runtime + "|" + strings.Join(keys, ",")
	if key == c.incompatible {
		return
	}
	c.incompatible = key

	for _, id := range ids {
		err := apperrors.NewWithContext(apperrors.ErrCodeIncompatibleVersion, "addon API version is not supported by the runtime",
			map[string]any{"apiVersion": id.APIVersion, "runtimeAPIVersion": runtime})
		c.logger.Warn("skipping incompatible addon",
			"addon", id.Coordinates(),
			"apiVersion", id.APIVersion,
			"runtimeAPIVersion", runtime,
			"error", err)
	}
}

// stopPhase signals every running addon that is no longer desired. Signals
// are not awaited; the id stays deferred until its worker exits.
func (c *Container) stopPhase(running map[addon.ID]*worker, desired *resolver.Resolution) {
	ids := make([]addon.ID, 0, len(running))
	for id := range running {
		if !desired.Contains(id) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)

	for _, id := range ids {
		w := running[id]
		if w.exiting.Load() {
			// exited on its own; reaped next tick
			continue
		}

		// an addon that lost a required dependency stays FAILED and
		// registered so the waitlist can bring it back
		waiting := c.reg.IsWaiting(id)
		if waiting {
			c.logger.Warn("stopping addon with unavailable dependencies", "addon", id.Coordinates(),
				"missing", c.reg.MutableWaitlist().Missing(id))
		} else {
			from := w.addon.SetStatus(addon.StatusStopping)
			recordTransition(addon.StatusStopping)
			c.logger.Info("stopping addon", "addon", id.Coordinates(), "from", from)
		}

		w.Shutdown()
		w.addon.UnbindModule()
		if !waiting {
			if err := c.reg.Remove(id); err != nil {
				c.logger.Warn("failed to deregister addon", "addon", id.Coordinates(), "error", err)
			}
		}
		delete(c.workers, id)
		c.draining[id] = w
	}
}

// startPhase spawns a worker for every desired addon that is not running,
// in resolution order, holding a batch slot until each finishes starting.
func (c *Container) startPhase(ctx context.Context, running map[addon.ID]*worker, desired *resolver.Resolution) {
	for _, a := range desired.Addons {
		if _, ok := running[a.ID()]; ok {
			continue
		}
		if err := c.batch.acquire(ctx); err != nil {
			c.logger.Debug("start phase interrupted", "error", err)
			return
		}
		if !c.spawn(a) {
			c.batch.release()
		}
	}
}

func (c *Container) spawn(a *registry.Addon) bool {
	m := a.Module()
	if m == nil {
		return false
	}
	from := a.SetStatus(addon.StatusStarting)
	recordTransition(addon.StatusStarting)
	c.logger.Info("starting addon", "addon", a.ID().Coordinates(), "from", from)

	w := newWorker(c.workerCtx, a, m, c.batch.release, c.logger)
	c.workers[a.ID()] = w
	go w.run()
	return true
}

// collect deregisters entries the repository no longer reports as deployed
// and enabled, once they have fully stopped. Entries still named in the
// missing set of a live waiting addon are kept.
func (c *Container) collect(state *desiredState) {
	waitlist := c.reg.MutableWaitlist()

	for _, a := range c.reg.List() {
		id := a.ID()
		if _, ok := state.live[id]; ok {
			continue
		}
		if a.Parked() {
			a.Unpark()
		}
		if _, ok := c.workers[id]; ok {
			continue
		}
		if a.HasModule() || a.Status().IsActive() {
			continue
		}
		if c.referencedByLive(waitlist, id, state) {
			continue
		}
		if err := c.reg.Remove(id); err != nil {
			c.logger.Debug("addon not collectable", "addon", id.Coordinates(), "error", err)
			continue
		}
		c.logger.Debug("addon deregistered", "addon", id.Coordinates())
	}
}

func (c *Container) referencedByLive(waitlist *registry.Waitlist, id addon.ID, state *desiredState) bool {
	for _, dependent := range waitlist.Dependents(id) {
		if _, ok := state.live[dependent]; ok {
			return true
		}
	}
	return false
}
