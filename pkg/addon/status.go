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

package addon

// Status is the lifecycle state of a registered addon.
type Status string

const (
	// StatusStopped means the addon is known but not running. Waitlisted
	// addons whose missing dependencies all resolved are set back to this.
	StatusStopped Status = "STOPPED"
	// StatusStarting means a worker was spawned and the addon's start step
	// has not finished yet.
	StatusStarting Status = "STARTING"
	// StatusStarted means the addon is running.
	StatusStarted Status = "STARTED"
	// StatusStopping means shutdown was signalled to the addon's worker.
	StatusStopping Status = "STOPPING"
	// StatusFailed means the addon could not be loaded or started, or failed
	// while running.
	StatusFailed Status = "FAILED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusStopped, StatusStarting, StatusStarted, StatusStopping, StatusFailed}

// IsActive reports whether a worker exists for an addon in this status.
func (s Status) IsActive() bool {
	return s == StatusStarting || s == StatusStarted || s == StatusStopping
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
