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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/loader"
	"github.com/NVIDIA/addon-container/pkg/registry"
	"github.com/NVIDIA/addon-container/pkg/repository"
	"github.com/NVIDIA/addon-container/pkg/resolver"
)

// ErrAlreadyStarted is returned by Start when the container was started before.
var ErrAlreadyStarted = errors.New("container already started")

// Option configures a Container.
type Option func(*Container)

// WithRepository uses repo instead of a directory repository.
func WithRepository(repo repository.Repository) Option {
	return func(c *Container) {
		c.repo = repo
	}
}

// WithLoader uses l to load addons.
func WithLoader(l loader.Loader) Option {
	return func(c *Container) {
		c.loader = l
	}
}

// WithRegistry uses reg instead of a fresh registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *Container) {
		c.reg = reg
	}
}

// WithLogger sets the container's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// Container reconciles running addons against a repository.
type Container struct {
	cfg    *Config
	id     string
	repo   repository.Repository
	reg    *registry.Registry
	loader loader.Loader
	logger *slog.Logger

	resolver *resolver.Resolver
	batch    *batcher

	started atomic.Bool
	alive   atomic.Bool
	ticked  atomic.Bool
	done    chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc

	// owned by the control goroutine
	workerCtx    context.Context
	workers      map[addon.ID]*worker
	draining     map[addon.ID]*worker
	incompatible string
}

// New creates a container. Without WithRepository the repository is the
// directory at cfg.RepositoryDir; without WithLoader addons are loaded from
// the global factories and, for a directory repository, from the commands
// their descriptors declare.
func New(cfg *Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid configuration", err)
	}

	c := &Container{
		cfg:       cfg,
		id:        uuid.New().String(),
		logger:    slog.Default(),
		workerCtx: context.Background(),
		workers:   make(map[addon.ID]*worker),
		draining:  make(map[addon.ID]*worker),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("container", c.id)

	if c.repo == nil {
		if cfg.RepositoryDir == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "repository directory is required")
		}
		c.repo = repository.NewDirectory(cfg.RepositoryDir,
			repository.WithRuntimeAPIVersion(cfg.RuntimeAPIVersion))
	}
	if c.reg == nil {
		c.reg = registry.New()
	}
	if c.loader == nil {
		chain := loader.Chain{loader.NewFromGlobal()}
		if src, ok := c.repo.(loader.CommandSource); ok {
			chain = append(chain, loader.NewExecLoader(src))
		}
		c.loader = chain
	}

	c.batch = newBatcher(cfg.BatchSize)
	c.resolver = resolver.New(c.repo, c.reg, c.loader)
	c.resolver.Logger = c.logger
	c.resolver.Deferred = func(id addon.ID) bool {
		_, ok := c.draining[id]
		return ok
	}

	return c, nil
}

// ID returns the container's instance id.
func (c *Container) ID() string {
	return c.id
}

// Registry returns the container's registry.
func (c *Container) Registry() *registry.Registry {
	return c.reg
}

// Repository returns the repository the container polls.
func (c *Container) Repository() repository.Repository {
	return c.repo
}

// Version returns the runtime API version addons are checked against, or ""
// when it is unknown.
func (c *Container) Version() string {
	if c.cfg.RuntimeAPIVersion != "" {
		return c.cfg.RuntimeAPIVersion
	}
	return c.repo.RuntimeAPIVersion()
}

// Alive reports whether the control loop is running.
func (c *Container) Alive() bool {
	return c.alive.Load()
}

// Ready reports whether the loop is running and has completed a tick.
func (c *Container) Ready() bool {
	return c.alive.Load() && c.ticked.Load()
}

// Done is closed when Start returns.
func (c *Container) Done() <-chan struct{} {
	return c.done
}

// Start runs the control loop until ctx is cancelled or Stop is called, then
// stops every worker. It returns an error only for a scheduler failure.
func (c *Container) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(c.done)

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	// workers outlive runCtx; they are stopped one by one on exit
	c.workerCtx = context.WithoutCancel(ctx)
	c.alive.Store(true)
	defer c.alive.Store(false)

	c.logger.Info("addon container started",
		"pollInterval", c.cfg.PollInterval,
		"batchSize", c.cfg.BatchSize,
		"serverMode", c.cfg.ServerMode,
		"runtimeAPIVersion", c.Version())
	if c.Version() == "" {
		c.logger.Warn("could not detect runtime API version, loading all addons; failures may occur if versions are not compatible")
	}

	err := c.loop(runCtx)
	c.stopAll()

	if err != nil {
		c.logger.Error("addon container failed", "error", err)
		return err
	}
	c.logger.Info("addon container stopped")
	return nil
}

// StartAsync runs Start on its own goroutine. The returned channel receives
// Start's result.
func (c *Container) StartAsync(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Start(ctx)
	}()
	return errCh
}

// Stop asks the control loop to exit. It does not wait; use Done.
func (c *Container) Stop() {
	c.alive.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Container) loop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for c.alive.Load() {
		if err := c.tick(ctx); err != nil {
			return err
		}
		if !c.cfg.ServerMode && !c.isStarting() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// isStarting reports whether any worker is still in its start step.
func (c *Container) isStarting() bool {
	for _, w := range c.workers {
		if w.addon.Status() == addon.StatusStarting && !w.finished() {
			return true
		}
	}
	return false
}

// stopAll signals every worker, waits for them up to the shutdown timeout and
// releases modules that were loaded but never started.
func (c *Container) stopAll() {
	ids := make([]addon.ID, 0, len(c.workers)+len(c.draining))
	all := make(map[addon.ID]*worker, len(c.workers)+len(c.draining))
	for id, w := range c.draining {
		all[id] = w
	}
	for id, w := range c.workers {
		if !w.exiting.Load() {
			if from := w.addon.SetStatus(addon.StatusStopping); from != addon.StatusStopping {
				recordTransition(addon.StatusStopping)
			}
		}
		all[id] = w
	}
	for id := range all {
		ids = append(ids, id)
	}
	sortIDs(ids)

	for _, id := range ids {
		all[id].Shutdown()
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()

	var g errgroup.Group
	for _, id := range ids {
		w := all[id]
		g.Go(func() error {
			select {
			case <-w.Done():
				return nil
			case <-waitCtx.Done():
				return apperrors.New(apperrors.ErrCodeTimeout,
					fmt.Sprintf("addon %s did not stop within %s", id.Coordinates(), c.cfg.ShutdownTimeout))
			}
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("addon shutdown incomplete", "error", err)
	}

	for _, a := range c.reg.List() {
		if _, running := all[a.ID()]; running {
			continue
		}
		if m := a.UnbindModule(); m != nil {
			if err := m.Close(); err != nil {
				c.logger.Warn("failed to close addon module", "addon", a.ID().Coordinates(), "error", err)
			}
		}
	}

	c.workers = make(map[addon.ID]*worker)
	c.draining = make(map[addon.ID]*worker)
	recordStatusCounts(c.reg)
	c.logger.Info("all addons stopped", "count", len(ids))
}

func sortIDs(ids []addon.ID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].Version < ids[j].Version
	})
}
