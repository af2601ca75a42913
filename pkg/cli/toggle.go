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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/repository"
)

func enableCmd() *cli.Command {
	return &cli.Command{
		Name:      "enable",
		Usage:     "Enable addons in the repository",
		ArgsUsage: "NAME:VERSION...",
		Description: `Marks addons as enabled in the repository manifest. A running container
picks the change up on its next tick. Addons missing from the manifest are
added.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			return toggle(cmd, "enabled", func(dir *repository.Directory, id addon.ID) error {
				return dir.Enable(id)
			})
		},
	}
}

func disableCmd() *cli.Command {
	return &cli.Command{
		Name:      "disable",
		Usage:     "Disable addons in the repository",
		ArgsUsage: "NAME:VERSION...",
		Description: `Marks addons as disabled in the repository manifest. A running container
stops them on its next tick.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			return toggle(cmd, "disabled", func(dir *repository.Directory, id addon.ID) error {
				return dir.Disable(id)
			})
		},
	}
}

func toggle(cmd *cli.Command, verb string, apply func(*repository.Directory, addon.ID) error) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	dir, err := openDirectory(cmd)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := apply(dir, id); err != nil {
			return err
		}
		slog.Info("addon "+verb, "addon", id.Coordinates(), "repository", dir.Root())
	}
	return nil
}
