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

// Package repository provides the authoritative, polled source of which
// addons exist, are deployed, are enabled, what they depend on and which
// API version they declare.
//
// The container calls a Repository on every reconciliation tick; there are
// no push notifications, so implementations re-read their backing store on
// each call and must be cheap enough to be polled.
//
// Two implementations are provided:
//
//   - Memory keeps everything in process. It is used by tests and by
//     programs that embed the container and manage addons themselves.
//   - Directory reads a repository root on disk:
//
//     <root>/installed.yaml                  enabled addons and runtime API version
//     <root>/<name>/<version>/addon.yaml     descriptor; presence means deployed
//     <root>/<name>/<version>/addon.hcl      alternative HCL descriptor
//
// Dependency ids returned by Dependencies are canonicalized against the
// installed list, so an edge declared by name and version resolves to the
// same id (including API version) that ListEnabled reports.
package repository
