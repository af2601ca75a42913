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

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/registry"
	"github.com/NVIDIA/addon-container/pkg/serializer"
)

// AddonSource provides a point-in-time view of registered addons.
type AddonSource interface {
	Snapshot() []registry.Entry
}

// AddonsResponse is the body of GET /v1/addons.
type AddonsResponse struct {
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Count     int              `json:"count" yaml:"count"`
	Addons    []registry.Entry `json:"addons" yaml:"addons"`
}

// AddonsHandler serves the registry snapshot as JSON, or YAML when the
// client accepts it. The optional status and name query parameters filter
// the entries.
func AddonsHandler(src AddonSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
				"method not allowed", false, nil)
			return
		}

		var want addon.Status
		if q := r.URL.Query().Get("status"); q != "" {
			s, ok := parseStatus(q)
			if !ok {
				WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
					"invalid status filter", false, map[string]any{
						"status":  q,
						"allowed": addon.Statuses,
					})
				return
			}
			want = s
		}
		name := r.URL.Query().Get("name")

		entries := make([]registry.Entry, 0)
		for _, e := range src.Snapshot() {
			if want != "" && e.Status != want {
				continue
			}
			if name != "" && e.ID.Name != name {
				continue
			}
			entries = append(entries, e)
		}

		w.Header().Set("Cache-Control", "no-store")
		serializer.Respond(w, r, http.StatusOK, AddonsResponse{
			Timestamp: time.Now().UTC(),
			Count:     len(entries),
			Addons:    entries,
		})
	}
}

func parseStatus(s string) (addon.Status, bool) {
	for _, st := range addon.Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}
