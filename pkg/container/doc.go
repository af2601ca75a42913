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

// Package container runs the addon container: a control loop that polls a
// repository on a fixed interval, resolves the desired addons against the
// registry and converges the set of running addons toward it.
//
// # Reconciliation
//
// Each tick the control goroutine:
//
//  1. reaps workers that have exited
//  2. snapshots the running addon ids
//  3. resolves the repository's enabled, compatible addons
//  4. stops running addons that are no longer desired
//  5. starts desired addons that are not running, at most BatchSize at a time
//  6. deregisters entries the repository no longer reports
//
// Only the control goroutine mutates registry membership and the waitlist.
// Workers report their own addon's STARTED, STOPPED and FAILED transitions.
//
// # Stopping
//
// Stopping an addon is cooperative: its worker's context is cancelled and the
// container moves on without waiting. The addon's id is not loaded again
// until the old worker has exited and closed its module, so two modules for
// one id never coexist.
//
// # Usage
//
//	cfg := container.NewConfig()
//	cfg.RepositoryDir = "/var/lib/addons"
//
//	c, err := container.New(cfg)
//	if err != nil {
//	    return err
//	}
//	return c.Start(ctx)
//
// Start blocks until ctx is cancelled or Stop is called. StartAsync runs the
// loop on its own goroutine. With ServerMode off, Start returns as soon as no
// addon is still starting.
package container
