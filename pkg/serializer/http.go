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
package serializer

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeYAML = "application/yaml"
)

// FormatFromAccept picks JSON or YAML from an Accept header. Anything that
// does not ask for YAML gets JSON.
func FormatFromAccept(accept string) Format {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case contentTypeYAML, "application/x-yaml", "text/yaml":
			return FormatYAML
		case contentTypeJSON:
			return FormatJSON
		}
	}
	return FormatJSON
}

// RespondJSON writes data as JSON with statusCode. The body is encoded
// before any header is written so a marshal failure yields a clean 500.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	respond(w, FormatJSON, statusCode, data)
}

// Respond writes data in the format requested by r's Accept header.
func Respond(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	respond(w, FormatFromAccept(r.Header.Get("Accept")), statusCode, data)
}

func respond(w http.ResponseWriter, format Format, statusCode int, data any) {
	var (
		body []byte
		err  error
	)
	if format == FormatJSON {
		body, err = json.Marshal(data)
	} else {
		body, err = Marshal(format, data)
	}
	if err != nil {
		slog.Error("response encoding failed", "format", format, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if format == FormatYAML {
		w.Header().Set("Content-Type", contentTypeYAML)
	} else {
		w.Header().Set("Content-Type", contentTypeJSON)
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
