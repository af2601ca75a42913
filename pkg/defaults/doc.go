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

// Package defaults provides centralized configuration constants for the addon
// container.
//
// Centralizing these values keeps the daemon, the CLI flags and the tests in
// agreement about what "default" means.
//
// # Categories
//
//   - Reconciliation: poll interval and startup batch size
//   - Startup batching: capacity retry interval
//   - Shutdown: how long the container waits for workers on exit
//   - Server: HTTP timeouts for the health and metrics endpoints
//
// # Usage
//
//	cfg := container.NewConfig()
//	cfg.PollInterval = defaults.PollInterval
package defaults
