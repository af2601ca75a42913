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

// Package registry holds the process-wide record of every known addon: its
// status, its bound module and the waitlist of addons blocked on unmet
// required dependencies.
//
// A Registry is constructed explicitly and owned by one container. Only the
// container's control goroutine mutates registry membership and the
// waitlist; worker goroutines report status changes on their own entry and
// any goroutine may read. All access goes through the registry's lock, so
// concurrent reads are safe against the control goroutine's writes.
//
// # Waitlist
//
// The waitlist maps a blocked addon to the set of dependencies it is missing.
// Entries shrink dependency by dependency as each missing dependency loads;
// when a set becomes empty the entry is cleared and the addon is set back to
// STOPPED so the next resolution pass retries it.
package registry
