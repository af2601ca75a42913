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

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/addon-container/pkg/registry"
	"github.com/NVIDIA/addon-container/pkg/serializer"
	"github.com/NVIDIA/addon-container/pkg/server"
)

// addonStatuses renders registry entries with title-cased statuses.
type addonStatuses []registry.Entry

func (l addonStatuses) TableHeader() []string {
	return []string{"NAME", "VERSION", "STATUS", "MISSING", "ERROR"}
}

func (l addonStatuses) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		missing := make([]string, len(e.Missing))
		for i, m := range e.Missing {
			missing[i] = m.Coordinates()
		}
		rows = append(rows, []string{
			e.ID.Name,
			e.ID.Version,
			titleStatus(e.Status),
			dashIfEmpty(strings.Join(missing, ",")),
			dashIfEmpty(e.Error),
		})
	}
	return rows
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the addons registered in a running container",
		Description: `Queries the /v1/addons endpoint of a running container.

# Examples

  addond status
  addond status --status failed --format json
  addond status --endpoint http://10.0.0.5:9090`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Base URL of the container's HTTP endpoint",
				Value:   "http://localhost:9090",
				Sources: cli.EnvVars("ADDON_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show addons in this status",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 10 * time.Second,
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			resp, err := fetchAddons(ctx, cmd.String("endpoint"), cmd.String("status"), cmd.Duration("timeout"))
			if err != nil {
				return err
			}

			w, err := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if err != nil {
				return err
			}
			defer w.Close()

			return w.Serialize(ctx, addonStatuses(resp.Addons))
		},
	}
}

func fetchAddons(ctx context.Context, endpoint, status string, timeout time.Duration) (*server.AddonsResponse, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/") + "/v1/addons")
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if status != "" {
		u.RawQuery = url.Values{"status": []string{status}}.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.nvidia.addon."+server.DefaultAPIVersion+"+json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach container at %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		var e server.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("container returned %d: [%s] %s", res.StatusCode, e.Code, e.Message)
		}
		return nil, fmt.Errorf("container returned %d", res.StatusCode)
	}

	var out server.AddonsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return &out, nil
}
