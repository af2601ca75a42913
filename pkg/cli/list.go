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
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/addon-container/pkg/repository"
	"github.com/NVIDIA/addon-container/pkg/serializer"
	apiversion "github.com/NVIDIA/addon-container/pkg/version"
)

// installedAddon is one row of the list command.
type installedAddon struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version" yaml:"version"`
	APIVersion   string   `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	Deployed     bool     `json:"deployed" yaml:"deployed"`
	Compatible   bool     `json:"compatible" yaml:"compatible"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

type installedAddons []installedAddon

func (l installedAddons) TableHeader() []string {
	return []string{"NAME", "VERSION", "API", "ENABLED", "DEPLOYED", "COMPATIBLE", "DEPENDENCIES"}
}

func (l installedAddons) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		api := a.APIVersion
		if api == "" {
			api = "-"
		}
		deps := strings.Join(a.Dependencies, ",")
		if deps == "" {
			deps = "-"
		}
		rows = append(rows, []string{
			a.Name, a.Version, api,
			yesNo(a.Enabled), yesNo(a.Deployed), yesNo(a.Compatible), deps,
		})
	}
	return rows
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List addons installed in the repository",
		Description: `Reads the repository manifest and each addon's descriptor and reports
whether the addon is enabled, deployed and compatible with the runtime API
version. Optional dependencies are marked with a trailing "?".`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "enabled",
				Usage: "Only list enabled addons",
			},
			&cli.StringFlag{
				Name:  "runtime-version",
				Usage: "Check compatibility against this version instead of the manifest's",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			dir, err := openDirectory(cmd)
			if err != nil {
				return err
			}

			list, err := listInstalled(dir, cmd.String("runtime-version"), cmd.Bool("enabled"))
			if err != nil {
				return err
			}

			w, err := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if err != nil {
				return err
			}
			defer w.Close()

			return w.Serialize(ctx, list)
		},
	}
}

func listInstalled(dir *repository.Directory, runtime string, enabledOnly bool) (installedAddons, error) {
	m, err := dir.Manifest()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if runtime == "" {
		runtime = m.RuntimeAPIVersion
	}

	list := make(installedAddons, 0, len(m.Addons))
	for _, a := range m.Addons {
		if enabledOnly && !a.Enabled {
			continue
		}
		id := a.ID()
		row := installedAddon{
			Name:       id.Name,
			Version:    id.Version,
			APIVersion: id.APIVersion,
			Enabled:    a.Enabled,
			Deployed:   dir.IsDeployed(id),
			Compatible: apiversion.Compatible(runtime, id.APIVersion),
		}
		if row.Deployed {
			deps, err := dir.Dependencies(id)
			if err != nil {
				return nil, fmt.Errorf("addon %s: %w", id.Coordinates(), err)
			}
			for _, d := range deps {
				s := d.ID.Coordinates()
				if d.Optional {
					s += "?"
				}
				row.Dependencies = append(row.Dependencies, s)
			}
		}
		list = append(list, row)
	}
	return list, nil
}
