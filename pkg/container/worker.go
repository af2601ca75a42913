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
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/loader"
	"github.com/NVIDIA/addon-container/pkg/registry"
)

// worker runs one addon's module on its own goroutine.
type worker struct {
	addon  *registry.Addon
	module loader.Module
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// releaseSlot frees the addon's start slot; called once.
	releaseSlot func()
	slotOnce    sync.Once

	shutdownOnce sync.Once
	stopping     atomic.Bool
	exiting      atomic.Bool
	signals      atomic.Int32
}

func newWorker(parent context.Context, a *registry.Addon, m loader.Module, releaseSlot func(), logger *slog.Logger) *worker {
	ctx, cancel := context.WithCancel(parent)
	return &worker{
		addon:       a,
		module:      m,
		logger:      logger.With("addon", a.ID().Coordinates()),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		releaseSlot: releaseSlot,
	}
}

// Shutdown signals the worker to stop. It does not wait and is safe to call
// any number of times; the signal is delivered once.
func (w *worker) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.stopping.Store(true)
		w.signals.Add(1)
		w.cancel()
	})
}

// Done is closed once the worker has exited and closed its module.
func (w *worker) Done() <-chan struct{} {
	return w.done
}

func (w *worker) finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *worker) started() {
	w.slotOnce.Do(w.releaseSlot)
}

func (w *worker) run() {
	defer close(w.done)
	defer w.closeModule()
	defer w.started()
	defer w.cancel()

	err := w.execute()

	// must precede the registry updates below; the stop phase skips
	// exiting workers
	w.exiting.Store(true)
	stopped := w.stopping.Load()
	if !stopped {
		w.addon.Park(err)
	}
	w.addon.UnbindModule()

	switch {
	case stopped:
		// FAILED set by the resolver for a missing dependency is kept
		if w.addon.CompareAndSetStatus(addon.StatusStopping, addon.StatusStopped) {
			recordTransition(addon.StatusStopped)
			w.logger.Debug("addon status changed", "from", addon.StatusStopping, "to", addon.StatusStopped)
		}
		if err != nil {
			w.logger.Warn("addon returned an error while stopping", "error", err)
		}
	case err != nil:
		w.transition(addon.StatusFailed)
		w.logger.Error("addon failed", "code", apperrors.CodeOf(err), "error", err)
	default:
		w.transition(addon.StatusStopped)
		w.logger.Info("addon completed")
	}
}

// execute runs the start step and then the module, turning panics into
// runtime failures.
func (w *worker) execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			workerPanics.Inc()
			err = apperrors.WrapWithContext(apperrors.ErrCodeRuntimeFailure, "addon panicked",
				fmt.Errorf("%v", r), map[string]any{"stack": string(debug.Stack())})
		}
	}()

	if s, ok := w.module.(loader.Starter); ok {
		if startErr := s.Start(w.ctx); startErr != nil {
			if w.stopping.Load() {
				return nil
			}
			return apperrors.Wrap(apperrors.ErrCodeRuntimeFailure, "addon failed to start", startErr)
		}
	}

	if w.addon.CompareAndSetStatus(addon.StatusStarting, addon.StatusStarted) {
		recordTransition(addon.StatusStarted)
		w.logger.Info("addon started", "from", addon.StatusStarting)
	}
	w.started()

	if runErr := w.module.Run(w.ctx); runErr != nil && !w.stopping.Load() {
		return apperrors.Wrap(apperrors.ErrCodeRuntimeFailure, "addon failed while running", runErr)
	}
	return nil
}

func (w *worker) transition(to addon.Status) {
	if from := w.addon.SetStatus(to); from != to {
		recordTransition(to)
		w.logger.Debug("addon status changed", "from", from, "to", to)
	}
}

func (w *worker) closeModule() {
	if err := w.module.Close(); err != nil {
		w.logger.Warn("failed to close addon module", "error", err)
	}
}
