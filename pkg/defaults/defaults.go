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

package defaults

import "time"

// Reconciliation loop defaults.
const (
	// PollInterval is the time between two reconciliation ticks.
	PollInterval = 100 * time.Millisecond

	// BatchSize is the maximum number of addons concurrently in STARTING.
	BatchSize = 4
)

// Shutdown defaults.
const (
	// ContainerShutdownTimeout bounds how long the container waits for
	// workers to return after signalling shutdown on exit.
	ContainerShutdownTimeout = 30 * time.Second

	// ExecWaitDelay is how long an exec addon has between SIGTERM and SIGKILL.
	ExecWaitDelay = 5 * time.Second
)

// Server timeouts for the health and metrics endpoint.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)
