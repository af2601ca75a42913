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

// Package serializer reads and writes the addon container's documents.
//
// The package supports three formats:
//   - JSON: machine-readable output and HTTP responses
//   - YAML: repository descriptors and human-readable output
//   - Table: column output for terminals
//
// Usage:
//
//	w := serializer.NewStdoutWriter(serializer.FormatTable)
//	if err := w.Serialize(ctx, entries); err != nil {
//		return err
//	}
//
// Reading a descriptor:
//
//	desc, err := serializer.FromFile[Descriptor]("addon.yaml")
//
// Persisting a document without exposing partial writes:
//
//	err := serializer.WriteFileAtomic(path, data, 0o644)
//
// Table output uses the Tabular interface when the value implements it and
// falls back to flattened FIELD/VALUE rows otherwise.
package serializer
