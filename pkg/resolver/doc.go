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

// Package resolver computes, once per reconciliation tick, which addons can
// be loaded given the repository's desired set and the registry's state.
//
// Resolution is depth-first: an addon's dependencies are resolved (loaded or
// found missing) before the addon's own load decision. An addon with an
// unmet required dependency is set FAILED and waitlisted with the set of
// dependencies it is missing; when one of those dependencies loads it is
// removed from every missing set, and an addon whose set empties goes back
// to STOPPED for the next pass. Optional dependencies never block loading.
//
// Waitlisted addons are re-evaluated on every pass, so a changed descriptor
// takes effect on the next tick. A pass still terminates: an addon met again
// while its own dependencies are being resolved is a cycle and is failed for
// that pass.
//
// Addons that are already running keep their module, but their required
// dependencies are checked on every pass too. One that lost a dependency is
// waitlisted, set FAILED and left out of the resolution so the container
// stops it.
//
// Loader failures park the addon. A parked addon is not loaded again until
// the repository stops reporting it, which keeps a broken addon from being
// reloaded on every tick.
package resolver
