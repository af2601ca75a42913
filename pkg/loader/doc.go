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

// Package loader turns an addon identity into a runnable, independently
// releasable Module.
//
// The container never knows how an addon is isolated. It only calls
// Loader.Load, runs the returned Module on a dedicated worker goroutine and
// calls Close once the worker has returned. Implementations in this package:
//
//   - FactoryLoader: in-process addons compiled into the binary and
//     registered from init() functions with MustRegister.
//   - ExecLoader: one subprocess per addon, described by the repository.
//   - Chain: tries several loaders in order, skipping ErrUnknownAddon.
//
// Loaders must tolerate concurrent Load calls for distinct ids.
package loader
